package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/arraypull/internal/doc"
)

// Value parses YAML flow or block syntax into a doc.Value.
func Value(t testing.TB, src string) doc.Value {
	t.Helper()
	v, err := doc.ParseYAML([]byte(src))
	require.NoError(t, err, "parse %q", src)
	return v
}

// Document parses src into a new mutable document.
func Document(t testing.TB, src string) *doc.Document {
	t.Helper()
	return doc.NewDocumentFrom(Value(t, src))
}

// JSON renders v as compact JSON.
func JSON(t testing.TB, v doc.Value) string {
	t.Helper()
	out, err := doc.MarshalJSON(v)
	require.NoError(t, err)
	return string(out)
}
