package pull

import (
	"fmt"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/match"
)

type matcherKind uint8

const (
	equalityMatcher matcherKind = iota
	objectMatcher
	wrappedObjectMatcher
)

func (k matcherKind) String() string {
	switch k {
	case equalityMatcher:
		return "equality"
	case objectMatcher:
		return "object"
	case wrappedObjectMatcher:
		return "wrappedObject"
	}
	return fmt.Sprintf("matcherKind(%d)", uint8(k))
}

// comparisonTokens are the first keys that make an object condition an
// operator applied to each element. $eq, $not and the bitwise operators are
// not among them, so {$eq: 5} is compiled as a top-level condition.
var comparisonTokens = map[string]bool{
	"$gt": true, "$gte": true, "$lt": true, "$lte": true, "$ne": true,
	"$in": true, "$nin": true, "$all": true, "$size": true,
	"$exists": true, "$type": true, "$mod": true,
	"$regex": true, "$options": true, "$elemMatch": true,
	"$near": true, "$nearSphere": true, "$within": true,
	"$geoWithin": true, "$maxDistance": true,
}

// classify picks the matcher for cond. It depends only on cond's shape.
func classify(cond doc.Value) matcherKind {
	switch cond.Type() {
	case doc.ObjectType:
		first, ok := cond.FirstField()
		if !ok || !comparisonTokens[first.Name] {
			return objectMatcher
		}
		return wrappedObjectMatcher
	case doc.RegexType:
		return wrappedObjectMatcher
	}
	return equalityMatcher
}

// matcher tests one array element against the condition. Equality keeps
// the raw condition; the object kinds keep a compiled expression that also
// carries the collator.
type matcher struct {
	kind     matcherKind
	cond     doc.Value
	expr     *match.Expression
	collator collation.Collator
}

func newMatcher(cond doc.Value, c collation.Collator) (matcher, error) {
	m := matcher{kind: classify(cond), cond: cond, collator: c}

	var src doc.Value
	switch m.kind {
	case equalityMatcher:
		return m, nil
	case objectMatcher:
		src = cond
	case wrappedObjectMatcher:
		src = cond.Wrap("")
	}
	expr, err := match.Parse(src, c, match.DisallowExtensions)
	if err != nil {
		return matcher{}, err
	}
	m.expr = expr
	return m, nil
}

func (m *matcher) match(e doc.Element) bool {
	switch m.kind {
	case equalityMatcher:
		return e.CompareWithValue(m.cond, comparator(m.collator), false) == 0
	case objectMatcher:
		if e.Type() != doc.ObjectType {
			return false
		}
		return m.expr.Matches(e.Value())
	case wrappedObjectMatcher:
		return m.expr.Matches(e.Value().Wrap(""))
	}
	return false
}

func (m *matcher) setCollator(c collation.Collator) {
	m.collator = c
	if m.expr != nil {
		m.expr.SetCollator(c)
	}
}

// clone returns a matcher of the same kind and condition whose collator can
// be changed independently.
func (m matcher) clone() matcher {
	if m.expr != nil {
		m.expr = m.expr.Clone()
	}
	return m
}

func comparator(c collation.Collator) doc.StringComparator {
	if c == nil {
		return nil
	}
	return c
}
