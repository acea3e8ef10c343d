package doc

import (
	"cmp"
	"math"
	"strings"
)

// StringComparator orders strings. A nil StringComparator means simple
// binary comparison.
type StringComparator interface {
	CompareString(a, b string) int
}

// Compare returns an integer comparing two values.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
//
// Values of different canonical brackets order by CanonicalRank. Int and
// Double compare numerically against each other. Strings go through c;
// field names never do.
func Compare(a, b Value, c StringComparator) int {
	rankA := CanonicalRank(a.typ)
	rankB := CanonicalRank(b.typ)
	if rankA != rankB {
		return cmp.Compare(rankA, rankB)
	}

	switch a.typ {
	case NullType:
		return 0
	case IntType, DoubleType:
		return compareNumbers(a, b)
	case StringType:
		return compareStrings(a.s, b.s, c)
	case BoolType:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case RegexType:
		if r := strings.Compare(a.s, b.s); r != 0 {
			return r
		}
		return strings.Compare(a.opts, b.opts)
	case ObjectType:
		return compareObjects(a.fields, b.fields, c)
	case ArrayType:
		return compareArrays(a.elems, b.elems, c)
	}
	return 0
}

// CompareFields compares two named values. When considerFieldName is set
// the names are compared after the canonical bracket and before the value.
func CompareFields(a, b Field, c StringComparator, considerFieldName bool) int {
	if considerFieldName {
		rankA := CanonicalRank(a.Value.typ)
		rankB := CanonicalRank(b.Value.typ)
		if rankA != rankB {
			return cmp.Compare(rankA, rankB)
		}
		if r := strings.Compare(a.Name, b.Name); r != 0 {
			return r
		}
	}
	return Compare(a.Value, b.Value, c)
}

func compareStrings(a, b string, c StringComparator) int {
	if c == nil {
		return strings.Compare(a, b)
	}
	return c.CompareString(a, b)
}

func compareObjects(a, b []Field, c StringComparator) int {
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		if r := CompareFields(a[i], b[i], c, true); r != 0 {
			return r
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareArrays(a, b []Value, c StringComparator) int {
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		if r := Compare(a[i], b[i], c); r != 0 {
			return r
		}
	}
	return cmp.Compare(len(a), len(b))
}

// compareNumbers orders NaN below every other number and equal to itself.
func compareNumbers(a, b Value) int {
	switch {
	case a.typ == IntType && b.typ == IntType:
		return cmp.Compare(a.i, b.i)
	case a.typ == IntType:
		return compareIntDouble(a.i, b.f)
	case b.typ == IntType:
		return -compareIntDouble(b.i, a.f)
	}
	return compareDoubles(a.f, b.f)
}

func compareDoubles(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return cmp.Compare(a, b)
}

// compareIntDouble compares without converting i to float64, which would
// lose precision past 2^53.
func compareIntDouble(i int64, f float64) int {
	if math.IsNaN(f) {
		return 1
	}
	if f >= 0x1p63 {
		return -1
	}
	if f < -0x1p63 {
		return 1
	}
	t := int64(f) // truncates toward zero
	if i != t {
		return cmp.Compare(i, t)
	}
	frac := f - float64(t)
	switch {
	case frac > 0:
		return -1
	case frac < 0:
		return 1
	}
	return 0
}
