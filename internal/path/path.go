// Package path parses dotted field paths and resolves them against a
// document.
package path

import (
	"fmt"
	"slices"
	"strings"
)

// FieldRef is a parsed dotted path such as "a.b.0". The zero value is the
// empty path.
type FieldRef struct {
	parts []string
}

// Parse splits dotted on '.'. Empty components are rejected.
func Parse(dotted string) (FieldRef, error) {
	if dotted == "" {
		return FieldRef{}, fmt.Errorf("empty field path")
	}
	parts := strings.Split(dotted, ".")
	for i, p := range parts {
		if p == "" {
			return FieldRef{}, fmt.Errorf("field path %q has an empty component at position %d", dotted, i)
		}
	}
	return FieldRef{parts: parts}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(dotted string) FieldRef {
	ref, err := Parse(dotted)
	if err != nil {
		panic(err)
	}
	return ref
}

// FromParts builds a ref from already split components.
func FromParts(parts ...string) FieldRef {
	return FieldRef{parts: slices.Clone(parts)}
}

func (r FieldRef) NumParts() int { return len(r.parts) }

func (r FieldRef) Empty() bool { return len(r.parts) == 0 }

// Part returns component i.
func (r FieldRef) Part(i int) string { return r.parts[i] }

// Parts returns a copy of the components.
func (r FieldRef) Parts() []string { return slices.Clone(r.parts) }

// Dotted joins the components with '.'.
func (r FieldRef) Dotted() string { return strings.Join(r.parts, ".") }

func (r FieldRef) String() string { return r.Dotted() }

// Append returns a new ref with part added at the end.
func (r FieldRef) Append(part string) FieldRef {
	parts := make([]string, len(r.parts), len(r.parts)+1)
	copy(parts, r.parts)
	return FieldRef{parts: append(parts, part)}
}

// Prefix returns the first n components.
func (r FieldRef) Prefix(n int) FieldRef {
	return FieldRef{parts: slices.Clone(r.parts[:n])}
}

// Suffix returns the components from n onward.
func (r FieldRef) Suffix(n int) FieldRef {
	return FieldRef{parts: slices.Clone(r.parts[n:])}
}

// IsPrefixOf reports whether r is a component-wise prefix of other. A ref
// is a prefix of itself.
func (r FieldRef) IsPrefixOf(other FieldRef) bool {
	if len(r.parts) > len(other.parts) {
		return false
	}
	return slices.Equal(r.parts, other.parts[:len(r.parts)])
}

func (r FieldRef) Equal(other FieldRef) bool {
	return slices.Equal(r.parts, other.parts)
}

// Concat joins two refs.
func Concat(a, b FieldRef) FieldRef {
	parts := slices.Grow([]string(nil), len(a.parts)+len(b.parts))
	parts = append(parts, a.parts...)
	parts = append(parts, b.parts...)
	return FieldRef{parts: parts}
}

// FieldRefSet holds refs for conflict checks.
type FieldRefSet struct {
	refs []FieldRef
}

// NewFieldRefSet parses each dotted path into a set.
func NewFieldRefSet(dotted ...string) (*FieldRefSet, error) {
	s := &FieldRefSet{}
	for _, d := range dotted {
		ref, err := Parse(d)
		if err != nil {
			return nil, err
		}
		s.Insert(ref)
	}
	return s, nil
}

// Insert adds ref unless an equal ref is already present.
func (s *FieldRefSet) Insert(ref FieldRef) {
	for _, r := range s.refs {
		if r.Equal(ref) {
			return
		}
	}
	s.refs = append(s.refs, ref)
}

func (s *FieldRefSet) Len() int { return len(s.refs) }

// FindConflict returns the first member that is a prefix of ref or has ref
// as a prefix.
func (s *FieldRefSet) FindConflict(ref FieldRef) (FieldRef, bool) {
	if s == nil {
		return FieldRef{}, false
	}
	for _, r := range s.refs {
		if r.IsPrefixOf(ref) || ref.IsPrefixOf(r) {
			return r, true
		}
	}
	return FieldRef{}, false
}

// IsNumericStrict reports whether part is a non-negative decimal integer
// without leading zeros ("0" is allowed).
func IsNumericStrict(part string) bool {
	_, ok := numericIndex(part)
	return ok
}

func numericIndex(part string) (int, bool) {
	if part == "" || len(part) > 9 || (len(part) > 1 && part[0] == '0') {
		return 0, false
	}
	n := 0
	for i := 0; i < len(part); i++ {
		c := part[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
