package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/doc"
)

func mustValue(t *testing.T, src string) doc.Value {
	t.Helper()
	v, err := doc.ParseYAML([]byte(src))
	require.NoError(t, err)
	return v
}

func mustParse(t *testing.T, src string) *Expression {
	t.Helper()
	e, err := Parse(mustValue(t, src), nil, DisallowExtensions)
	require.NoError(t, err)
	return e
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		cond string
		obj  string
		want bool
	}{
		{"equality", `{a: 1}`, `{a: 1}`, true},
		{"equality across number types", `{a: 1}`, `{a: 1.0}`, true},
		{"equality mismatch", `{a: 1}`, `{a: 2}`, false},
		{"equality into array", `{a: 2}`, `{a: [1, 2, 3]}`, true},
		{"equality whole array", `{a: [1, 2]}`, `{a: [1, 2]}`, true},
		{"null matches missing", `{a: null}`, `{b: 1}`, true},
		{"empty condition", `{}`, `{b: 1}`, true},
		{"dotted path", `{a.b: 1}`, `{a: {b: 1}}`, true},
		{"dotted path through array", `{a.b: 1}`, `{a: [{b: 2}, {b: 1}]}`, true},
		{"dotted path numeric index", `{a.1: 5}`, `{a: [4, 5]}`, true},
		{"dotted path numeric index miss", `{a.0: 5}`, `{a: [4, 5]}`, false},

		{"gt", `{x: {$gt: 3}}`, `{x: 5}`, true},
		{"gt equal", `{x: {$gt: 3}}`, `{x: 3}`, false},
		{"gte", `{x: {$gte: 3}}`, `{x: 3}`, true},
		{"lt", `{x: {$lt: 3}}`, `{x: 1}`, true},
		{"lte", `{x: {$lte: 3}}`, `{x: 4}`, false},
		{"range", `{x: {$gt: 1, $lt: 5}}`, `{x: 3}`, true},
		{"gt ignores other types", `{x: {$gt: 3}}`, `{x: "abc"}`, false},
		{"gt missing", `{x: {$gt: 3}}`, `{y: 5}`, false},
		{"gt on array element", `{x: {$gt: 3}}`, `{x: [1, 7]}`, true},
		{"lte null matches missing", `{x: {$lte: null}}`, `{}`, true},

		{"eq operator", `{x: {$eq: 2}}`, `{x: 2}`, true},
		{"ne", `{x: {$ne: 2}}`, `{x: 3}`, true},
		{"ne on array containing", `{x: {$ne: 2}}`, `{x: [1, 2]}`, false},
		{"ne missing", `{x: {$ne: 2}}`, `{}`, true},

		{"in", `{x: {$in: [1, 2]}}`, `{x: 2}`, true},
		{"in miss", `{x: {$in: [1, 2]}}`, `{x: 3}`, false},
		{"in regex", `{x: {$in: [!regex /^ab/]}}`, `{x: "abc"}`, true},
		{"in null missing", `{x: {$in: [null]}}`, `{}`, true},
		{"nin", `{x: {$nin: [1, 2]}}`, `{x: 3}`, true},
		{"nin hit", `{x: {$nin: [1, 2]}}`, `{x: 1}`, false},

		{"exists", `{x: {$exists: true}}`, `{x: null}`, true},
		{"exists missing", `{x: {$exists: true}}`, `{}`, false},
		{"not exists", `{x: {$exists: false}}`, `{}`, true},
		{"not exists present", `{x: {$exists: 0}}`, `{x: 1}`, false},

		{"type name", `{x: {$type: string}}`, `{x: "s"}`, true},
		{"type code", `{x: {$type: 16}}`, `{x: 7}`, true},
		{"type number", `{x: {$type: number}}`, `{x: 1.5}`, true},
		{"type list", `{x: {$type: [bool, "null"]}}`, `{x: false}`, true},
		{"type miss", `{x: {$type: string}}`, `{x: 1}`, false},

		{"size", `{x: {$size: 2}}`, `{x: [1, 2]}`, true},
		{"size miss", `{x: {$size: 2}}`, `{x: [1]}`, false},
		{"size non array", `{x: {$size: 0}}`, `{x: 1}`, false},

		{"all", `{x: {$all: [1, 2]}}`, `{x: [2, 3, 1]}`, true},
		{"all miss", `{x: {$all: [1, 4]}}`, `{x: [2, 3, 1]}`, false},
		{"all empty", `{x: {$all: []}}`, `{x: [1]}`, false},
		{"all scalar", `{x: {$all: [1]}}`, `{x: 1}`, true},

		{"mod", `{x: {$mod: [4, 1]}}`, `{x: 9}`, true},
		{"mod double", `{x: {$mod: [4, 1]}}`, `{x: 9.7}`, true},
		{"mod miss", `{x: {$mod: [4, 1]}}`, `{x: 8}`, false},

		{"regex literal", `{x: !regex /^ab/}`, `{x: "abc"}`, true},
		{"regex literal options", `{x: !regex /^AB/i}`, `{x: "abc"}`, true},
		{"regex operator", `{x: {$regex: "^AB", $options: i}}`, `{x: "abc"}`, true},
		{"regex non string", `{x: !regex /1/}`, `{x: 1}`, false},
		{"regex identity", `{x: !regex /a/i}`, `{x: !regex /a/i}`, true},

		{"not regex", `{x: {$not: !regex /^a/}}`, `{x: "bcd"}`, true},
		{"not operator", `{x: {$not: {$gt: 3}}}`, `{x: 2}`, true},
		{"not operator hit", `{x: {$not: {$gt: 3}}}`, `{x: 4}`, false},
		{"not missing", `{x: {$not: {$gt: 3}}}`, `{}`, true},

		{"elemMatch object", `{a: {$elemMatch: {b: 1, c: 2}}}`, `{a: [{b: 1, c: 1}, {b: 1, c: 2}]}`, true},
		{"elemMatch object split", `{a: {$elemMatch: {b: 1, c: 2}}}`, `{a: [{b: 1}, {c: 2}]}`, false},
		{"elemMatch value", `{a: {$elemMatch: {$gt: 1, $lt: 3}}}`, `{a: [0, 2, 5]}`, true},
		{"elemMatch value miss", `{a: {$elemMatch: {$gt: 1, $lt: 3}}}`, `{a: [0, 5]}`, false},
		{"elemMatch value ne", `{a: {$elemMatch: {$ne: 1}}}`, `{a: [1, 1]}`, false},
		{"elemMatch non array", `{a: {$elemMatch: {$gt: 1}}}`, `{a: 2}`, false},
		{"elemMatch logical", `{a: {$elemMatch: {$or: [{b: 1}, {b: 2}]}}}`, `{a: [{b: 2}]}`, true},

		{"and", `{$and: [{a: 1}, {b: 2}]}`, `{a: 1, b: 2}`, true},
		{"and miss", `{$and: [{a: 1}, {b: 2}]}`, `{a: 1, b: 3}`, false},
		{"or", `{$or: [{a: 1}, {b: 2}]}`, `{b: 2}`, true},
		{"nor", `{$nor: [{a: 1}, {b: 2}]}`, `{a: 3}`, true},
		{"nor hit", `{$nor: [{a: 1}, {b: 2}]}`, `{a: 1}`, false},
		{"comment ignored", `{$comment: hi, a: 1}`, `{a: 1}`, true},

		{"wrapped field name", `{"": {$gt: 3}}`, `{"": 4}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := mustParse(t, tc.cond)
			assert.Equal(t, tc.want, e.Matches(mustValue(t, tc.obj)))
		})
	}
}

func TestMatches_NonObject(t *testing.T) {
	e := mustParse(t, `{}`)
	assert.False(t, e.Matches(doc.Int(1)))
	assert.False(t, e.Matches(doc.Array()))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		cond string
	}{
		{"not an object", `[1]`},
		{"unknown top level", `{$foo: 1}`},
		{"unknown field operator", `{x: {$foo: 1}}`},
		{"mixed operator object", `{x: {$gt: 1, y: 2}}`},
		{"and not array", `{$and: {a: 1}}`},
		{"and empty", `{$and: []}`},
		{"or entry not object", `{$or: [1]}`},
		{"in not array", `{x: {$in: 1}}`},
		{"in nested operator", `{x: {$in: [{$gt: 1}]}}`},
		{"size negative", `{x: {$size: -1}}`},
		{"size fractional", `{x: {$size: 1.5}}`},
		{"mod zero divisor", `{x: {$mod: [0, 1]}}`},
		{"mod wrong arity", `{x: {$mod: [1]}}`},
		{"type unknown", `{x: {$type: widget}}`},
		{"type unknown code", `{x: {$type: 99}}`},
		{"options without regex", `{x: {$options: i}}`},
		{"regex bad option", `{x: {$regex: a, $options: q}}`},
		{"regex invalid", `{x: {$regex: "("}}`},
		{"regex options twice", `{x: {$regex: !regex /a/i, $options: m}}`},
		{"ne regex", `{x: {$ne: !regex /a/}}`},
		{"not scalar", `{x: {$not: 1}}`},
		{"not empty", `{x: {$not: {}}}`},
		{"all nested operator", `{x: {$all: [{$gt: 1}]}}`},
		{"elemMatch not object", `{x: {$elemMatch: 1}}`},
		{"unsupported geo", `{x: {$near: [0, 0]}}`},
		{"where disallowed", `{$where: "true"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(mustValue(t, tc.cond), nil, DisallowExtensions)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParse_IgnoreExtensions(t *testing.T) {
	e, err := Parse(mustValue(t, `{$where: "true", a: 1}`), nil, IgnoreExtensions)
	require.NoError(t, err)
	assert.True(t, e.Matches(mustValue(t, `{a: 1}`)))
	assert.False(t, e.Matches(mustValue(t, `{a: 2}`)))
}

func TestExpression_Collator(t *testing.T) {
	e := mustParse(t, `{name: abc}`)
	obj := mustValue(t, `{name: ABC}`)
	assert.False(t, e.Matches(obj))

	clone := e.Clone()
	clone.SetCollator(collation.MustNew(collation.Spec{Locale: "en", Strength: collation.StrengthSecondary}))
	assert.True(t, clone.Matches(obj))
	assert.False(t, e.Matches(obj), "clone must not share the collator")
	assert.Nil(t, e.Collator())
	assert.Equal(t, e.Source(), clone.Source())
}
