package doc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML_PreservesOrderAndTypes(t *testing.T) {
	v, err := ParseYAML([]byte(`
z: 1
a: 2.5
m: [true, null, "s"]
r: !regex "/^ab/i"
big: 99999999999999999999
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m", "r", "big"}, fieldNames(v))

	z, _ := v.Lookup("z")
	assert.Equal(t, IntType, z.Type())
	assert.Equal(t, int64(1), z.Int())

	a, _ := v.Lookup("a")
	assert.Equal(t, DoubleType, a.Type())

	m, _ := v.Lookup("m")
	require.Equal(t, 3, m.Len())
	assert.Equal(t, BoolType, m.Elems()[0].Type())
	assert.Equal(t, NullType, m.Elems()[1].Type())
	assert.Equal(t, StringType, m.Elems()[2].Type())

	r, _ := v.Lookup("r")
	assert.Equal(t, RegexType, r.Type())
	assert.Equal(t, "^ab", r.Pattern())
	assert.Equal(t, "i", r.Options())

	big, _ := v.Lookup("big")
	assert.Equal(t, DoubleType, big.Type())
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON([]byte(`{"b": [1, 2, "a", 2], "": {"$gt": 3}}`))
	require.NoError(t, err)

	assert.Equal(t, `{"b": [1, 2, "a", 2], "": {"$gt": 3}}`, v.String())
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML([]byte(""))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("{a: [}"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("? [a]\n: 1\n"))
	assert.Error(t, err, "non-scalar keys are rejected")
}

func TestParseRegexLiteral(t *testing.T) {
	v, err := ParseRegexLiteral("/a/b/ms")
	require.NoError(t, err)
	assert.Equal(t, "a/b", v.Pattern())
	assert.Equal(t, "ms", v.Options())

	v, err = ParseRegexLiteral("^bare$")
	require.NoError(t, err)
	assert.Equal(t, "^bare$", v.Pattern())
	assert.Empty(t, v.Options())

	_, err = ParseRegexLiteral("/open")
	assert.Error(t, err)
}

func TestMarshalJSON_PreservesOrder(t *testing.T) {
	v := Object(
		F("z", Int(1)),
		F("a", Array(Double(2), String("<&>"), Null(), Bool(false))),
		F("r", Regex("^x", "i")),
	)

	data, err := MarshalJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[2.0,"<&>",null,false],"r":{"$regex":"^x","$options":"i"}}`, string(data))

	back, err := ParseJSON(data)
	require.NoError(t, err)
	z, _ := back.Lookup("z")
	assert.Equal(t, IntType, z.Type())
	a, _ := back.Lookup("a")
	assert.Equal(t, DoubleType, a.Elems()[0].Type())
}

func TestMarshalJSON_RejectsNonFinite(t *testing.T) {
	_, err := MarshalJSON(Array(Double(math.Inf(1))))
	assert.Error(t, err)
}

func TestUnmarshalJSON_RestoresRegex(t *testing.T) {
	v := Object(
		F("r", Regex("^a", "i")),
		F("list", Array(Regex("b", ""), Object(F("$regex", String("x"))))),
	)

	data, err := MarshalJSON(v)
	require.NoError(t, err)

	got, err := UnmarshalJSON(data)
	require.NoError(t, err)
	assert.Equal(t, v.String(), got.String())

	canonical, err := MarshalCanonical(v)
	require.NoError(t, err)
	fromCanonical, err := UnmarshalJSON(canonical)
	require.NoError(t, err)
	r, ok := fromCanonical.Lookup("r")
	require.True(t, ok)
	assert.Equal(t, RegexType, r.Type())
	assert.Equal(t, "i", r.Options())
}
