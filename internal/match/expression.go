package match

import (
	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/doc"
)

// Expression is a compiled condition. The tree is immutable; only the
// collator may change after Parse.
type Expression struct {
	root     node
	collator collation.Collator
	source   doc.Value
}

// Parse compiles cond, which must be an object. A nil collator compares
// strings by code point.
func Parse(cond doc.Value, c collation.Collator, policy ExtensionPolicy) (*Expression, error) {
	if cond.Type() != doc.ObjectType {
		return nil, parseErrorf("", "condition must be an object, got %s", cond.Type())
	}
	p := &parser{policy: policy}
	root, err := p.compileObject(cond, 0)
	if err != nil {
		return nil, err
	}
	return &Expression{root: root, collator: c, source: cond}, nil
}

// Matches reports whether obj satisfies the expression. Values that are
// not objects never match.
func (e *Expression) Matches(obj doc.Value) bool {
	if obj.Type() != doc.ObjectType {
		return false
	}
	return e.root.matches(obj, comparator(e.collator))
}

// SetCollator replaces the collator used by later calls to Matches.
func (e *Expression) SetCollator(c collation.Collator) {
	e.collator = c
}

func (e *Expression) Collator() collation.Collator {
	return e.collator
}

// Source returns the condition the expression was compiled from.
func (e *Expression) Source() doc.Value {
	return e.source
}

// Clone returns an expression sharing the compiled tree whose collator can
// be changed independently.
func (e *Expression) Clone() *Expression {
	c := *e
	return &c
}

// comparator keeps a nil collator a nil interface.
func comparator(c collation.Collator) doc.StringComparator {
	if c == nil {
		return nil
	}
	return c
}
