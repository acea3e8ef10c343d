// Package collation provides locale-aware string comparison policies used by
// equality and relational comparisons of document values.
//
// A nil Collator means simple binary comparison. Collators are NOT safe for
// concurrent use: the underlying x/text collator reuses internal buffers.
package collation

import (
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SimpleLocale selects binary comparison.
const SimpleLocale = "simple"

// Strength levels.
const (
	StrengthPrimary   = 1 // base letters only: ignores case and diacritics
	StrengthSecondary = 2 // base letters and diacritics: ignores case
	StrengthTertiary  = 3 // base letters, diacritics and case
)

// Spec describes a collation.
type Spec struct {
	Locale          string `json:"locale" yaml:"locale"`
	Strength        int    `json:"strength,omitempty" yaml:"strength,omitempty"`
	NumericOrdering bool   `json:"numeric_ordering,omitempty" yaml:"numeric_ordering,omitempty"`
}

// IsSimple reports whether s selects binary comparison.
func (s Spec) IsSimple() bool {
	return s.Locale == "" || s.Locale == SimpleLocale
}

func (s Spec) String() string {
	if s.IsSimple() {
		return SimpleLocale
	}
	return fmt.Sprintf("%s/strength=%d/numeric=%t", s.Locale, s.strength(), s.NumericOrdering)
}

func (s Spec) strength() int {
	if s.Strength == 0 {
		return StrengthTertiary
	}
	return s.Strength
}

// Collator compares strings under a collation.
type Collator interface {
	CompareString(a, b string) int
	Spec() Spec
}

// New builds a collator for spec. A simple spec yields a nil Collator and
// no error.
func New(spec Spec) (Collator, error) {
	if spec.IsSimple() {
		return nil, nil
	}
	tag, err := language.Parse(spec.Locale)
	if err != nil {
		return nil, fmt.Errorf("collation: invalid locale %q: %w", spec.Locale, err)
	}

	var opts []collate.Option
	switch spec.strength() {
	case StrengthPrimary:
		opts = append(opts, collate.Loose)
	case StrengthSecondary:
		opts = append(opts, collate.IgnoreCase)
	case StrengthTertiary:
	default:
		return nil, fmt.Errorf("collation: strength must be between 1 and 3, got %d", spec.Strength)
	}
	if spec.NumericOrdering {
		opts = append(opts, collate.Numeric)
	}

	return &localeCollator{spec: spec, c: collate.New(tag, opts...)}, nil
}

// MustNew is like New but panics on error. Intended for tests and static
// configuration.
func MustNew(spec Spec) Collator {
	c, err := New(spec)
	if err != nil {
		panic(err)
	}
	return c
}

type localeCollator struct {
	spec Spec
	c    *collate.Collator
}

func (l *localeCollator) CompareString(a, b string) int {
	return l.c.CompareString(a, b)
}

func (l *localeCollator) Spec() Spec {
	return l.spec
}

// Equal reports whether two collators implement the same collation. Two nil
// collators are equal.
func Equal(a, b Collator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Spec() == b.Spec()
}

// SpecOf returns the spec of c, treating nil as simple.
func SpecOf(c Collator) Spec {
	if c == nil {
		return Spec{Locale: SimpleLocale}
	}
	return c.Spec()
}
