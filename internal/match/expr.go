package match

import (
	"math"
	"regexp"

	"github.com/roach88/arraypull/internal/doc"
)

// node is a compiled boolean expression over an object value.
type node interface {
	matches(obj doc.Value, c doc.StringComparator) bool
}

type andNode []node

func (n andNode) matches(obj doc.Value, c doc.StringComparator) bool {
	for _, child := range n {
		if !child.matches(obj, c) {
			return false
		}
	}
	return true
}

type orNode []node

func (n orNode) matches(obj doc.Value, c doc.StringComparator) bool {
	for _, child := range n {
		if child.matches(obj, c) {
			return true
		}
	}
	return false
}

type norNode []node

func (n norNode) matches(obj doc.Value, c doc.StringComparator) bool {
	return !orNode(n).matches(obj, c)
}

type notNode struct {
	child node
}

func (n notNode) matches(obj doc.Value, c doc.StringComparator) bool {
	return !n.child.matches(obj, c)
}

type constNode bool

func (n constNode) matches(doc.Value, doc.StringComparator) bool {
	return bool(n)
}

// fieldNode applies a leaf predicate to every value reachable at path.
type fieldNode struct {
	path []string
	pred leafPred
}

func (n fieldNode) matches(obj doc.Value, c doc.StringComparator) bool {
	found := false
	hit := false
	walkPath(obj, n.path, func(v doc.Value, missing bool) bool {
		found = true
		if missing {
			hit = n.pred.matchMissing()
		} else {
			hit = matchLeaf(n.pred, v, c)
		}
		return !hit
	})
	if !found {
		return n.pred.matchMissing()
	}
	return hit
}

func matchLeaf(p leafPred, v doc.Value, c doc.StringComparator) bool {
	if p.matchValue(v, c) {
		return true
	}
	if v.Type() == doc.ArrayType && p.expandArrays() {
		for _, e := range v.Elems() {
			if p.matchValue(e, c) {
				return true
			}
		}
	}
	return false
}

// leafPred tests one value found at a field path.
type leafPred interface {
	matchValue(v doc.Value, c doc.StringComparator) bool
	// matchMissing reports the result when the path does not resolve.
	matchMissing() bool
	// expandArrays reports whether array elements are tested individually.
	expandArrays() bool
}

type eqPred struct {
	operand doc.Value
}

func (p eqPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	return doc.Compare(v, p.operand, c) == 0
}

func (p eqPred) matchMissing() bool { return p.operand.Type() == doc.NullType }
func (p eqPred) expandArrays() bool { return true }

type cmpOp uint8

const (
	opLT cmpOp = iota
	opLTE
	opGT
	opGTE
)

type cmpPred struct {
	op      cmpOp
	operand doc.Value
}

func (p cmpPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	if doc.CanonicalRank(v.Type()) != doc.CanonicalRank(p.operand.Type()) {
		return false
	}
	r := doc.Compare(v, p.operand, c)
	switch p.op {
	case opLT:
		return r < 0
	case opLTE:
		return r <= 0
	case opGT:
		return r > 0
	case opGTE:
		return r >= 0
	}
	return false
}

func (p cmpPred) matchMissing() bool {
	return p.operand.Type() == doc.NullType && (p.op == opLTE || p.op == opGTE)
}

func (p cmpPred) expandArrays() bool { return true }

type inPred struct {
	values  []doc.Value
	regexes []regexPred
}

func (p inPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	for _, operand := range p.values {
		if doc.Compare(v, operand, c) == 0 {
			return true
		}
	}
	for _, re := range p.regexes {
		if re.matchValue(v, c) {
			return true
		}
	}
	return false
}

func (p inPred) matchMissing() bool {
	for _, operand := range p.values {
		if operand.Type() == doc.NullType {
			return true
		}
	}
	return false
}

func (p inPred) expandArrays() bool { return true }

type regexPred struct {
	pattern string
	options string
	re      *regexp.Regexp
}

// matchValue matches strings against the pattern and regex values by
// identity. Collation does not apply.
func (p regexPred) matchValue(v doc.Value, _ doc.StringComparator) bool {
	switch v.Type() {
	case doc.StringType:
		return p.re.MatchString(v.Str())
	case doc.RegexType:
		return v.Pattern() == p.pattern && v.Options() == p.options
	}
	return false
}

func (p regexPred) matchMissing() bool { return false }
func (p regexPred) expandArrays() bool { return true }

type constPred bool

func (p constPred) matchValue(doc.Value, doc.StringComparator) bool { return bool(p) }
func (p constPred) matchMissing() bool { return bool(p) }
func (p constPred) expandArrays() bool { return false }

type existsPred struct{}

func (existsPred) matchValue(doc.Value, doc.StringComparator) bool { return true }
func (existsPred) matchMissing() bool { return false }
func (existsPred) expandArrays() bool { return false }

type typePred struct {
	types []doc.Type
	// number matches either numeric type.
	number bool
}

func (p typePred) matchValue(v doc.Value, _ doc.StringComparator) bool {
	if p.number && v.Type().IsNumber() {
		return true
	}
	for _, t := range p.types {
		if v.Type() == t {
			return true
		}
	}
	return false
}

func (p typePred) matchMissing() bool { return false }
func (p typePred) expandArrays() bool { return true }

type sizePred struct {
	size int
}

func (p sizePred) matchValue(v doc.Value, _ doc.StringComparator) bool {
	return v.Type() == doc.ArrayType && v.Len() == p.size
}

func (p sizePred) matchMissing() bool { return false }
func (p sizePred) expandArrays() bool { return false }

type modPred struct {
	divisor   int64
	remainder int64
}

func (p modPred) matchValue(v doc.Value, _ doc.StringComparator) bool {
	var n int64
	switch v.Type() {
	case doc.IntType:
		n = v.Int()
	case doc.DoubleType:
		f := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 0x1p63 {
			return false
		}
		n = int64(f)
	default:
		return false
	}
	return n%p.divisor == p.remainder
}

func (p modPred) matchMissing() bool { return false }
func (p modPred) expandArrays() bool { return true }

// elemMatchObjectPred matches arrays with an object element satisfying expr.
type elemMatchObjectPred struct {
	expr node
}

func (p elemMatchObjectPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	if v.Type() != doc.ArrayType {
		return false
	}
	for _, e := range v.Elems() {
		if e.Type() == doc.ObjectType && p.expr.matches(e, c) {
			return true
		}
	}
	return false
}

func (p elemMatchObjectPred) matchMissing() bool { return false }
func (p elemMatchObjectPred) expandArrays() bool { return false }

// elemMatchValuePred matches arrays with one element satisfying every pred.
type elemMatchValuePred struct {
	preds conjPred
}

func (p elemMatchValuePred) matchValue(v doc.Value, c doc.StringComparator) bool {
	if v.Type() != doc.ArrayType {
		return false
	}
	for _, e := range v.Elems() {
		if p.preds.matchValue(e, c) {
			return true
		}
	}
	return false
}

func (p elemMatchValuePred) matchMissing() bool { return false }
func (p elemMatchValuePred) expandArrays() bool { return false }

// notPred negates pred for a single value.
type notPred struct {
	pred leafPred
}

func (p notPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	return !matchLeaf(p.pred, v, c)
}

func (p notPred) matchMissing() bool { return !p.pred.matchMissing() }
func (p notPred) expandArrays() bool { return false }

// conjPred is satisfied when every pred matches the same value.
type conjPred []leafPred

func (p conjPred) matchValue(v doc.Value, c doc.StringComparator) bool {
	for _, pred := range p {
		if !matchLeaf(pred, v, c) {
			return false
		}
	}
	return true
}

func (p conjPred) matchMissing() bool { return false }
func (p conjPred) expandArrays() bool { return false }
