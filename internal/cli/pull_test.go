package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arraypull/internal/config"
	"github.com/roach88/arraypull/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func jsonResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	if data != nil {
		resp.Data = data
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestPull_TextGolden(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"tags": [1, "a", 2, "a"], "n": 1}`)
	b := writeFile(t, dir, "b.yaml", "tags: [x, y]\n")

	out, errOut, code := runCLI(t, "pull", "--doc", a, "--doc", b, "--path", "tags", "--cond", "a", "--index", "tags")
	require.Equal(t, ExitSuccess, code, errOut)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "pull_text", []byte(out))
}

func TestPull_JSON(t *testing.T) {
	dir := t.TempDir()
	cart := writeFile(t, dir, "cart.json", `{"items": [{"sku": "a", "qty": 0}, {"sku": "b", "qty": 2}, {"sku": "c", "qty": 0}]}`)

	out, errOut, code := runCLI(t, "--format", "json", "pull", "--doc", cart, "--path", "items", "--cond", "{qty: 0}")
	require.Equal(t, ExitSuccess, code, errOut)

	var result PullResult
	resp := jsonResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Documents, 1)

	got := result.Documents[0]
	assert.Equal(t, "cart", got.DocID)
	assert.Equal(t, 2, got.Removed)
	assert.False(t, got.IndexesAffected)
	assert.JSONEq(t, `{"items": [{"sku": "b", "qty": 2}]}`, string(got.Document))

	require.Len(t, got.Entries, 1)
	want := EntryView{
		Seq:       1,
		Namespace: config.DefaultNamespace,
		DocID:     "cart",
		Op:        "$set",
		Path:      "items",
	}
	gotEntry := got.Entries[0]
	assert.JSONEq(t, `[{"sku": "b", "qty": 2}]`, string(gotEntry.Value))
	assert.NotEmpty(t, gotEntry.ID)
	assert.NotEmpty(t, gotEntry.ValueHash)
	gotEntry.ID, gotEntry.ValueHash, gotEntry.Value = "", "", nil
	if diff := cmp.Diff(want, gotEntry); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestPull_Collation(t *testing.T) {
	dir := t.TempDir()
	users := writeFile(t, dir, "users.yaml", "names: [Alice, alice, Bob]\n")

	out, errOut, code := runCLI(t, "--format", "json", "pull", "--doc", users, "--path", "names", "--cond", "ALICE",
		"--collation-locale", "en", "--collation-strength", "2")
	require.Equal(t, ExitSuccess, code, errOut)

	var result PullResult
	jsonResponse(t, out, &result)
	assert.JSONEq(t, `{"names": ["Bob"]}`, string(result.Documents[0].Document))
}

func TestPull_Rejected(t *testing.T) {
	dir := t.TempDir()
	d := writeFile(t, dir, "d.json", `{"_id": [1], "tags": 5}`)

	tests := []struct {
		name string
		path string
		cond string
		code string
	}{
		{"non array", "tags", "5", "INVALID_OPERAND"},
		{"immutable", "_id", "1", "IMMUTABLE_FIELD"},
		{"bad condition", "tags", "{$gt: 1, $bogus: 2}", "PARSE_ERROR"},
		{"not viable", "tags.x", "1", "PATH_NOT_VIABLE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _, code := runCLI(t, "--format", "json", "pull", "--doc", d, "--path", tc.path, "--cond", tc.cond)
			assert.Equal(t, ExitFailure, code)

			resp := jsonResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestPull_MissingDocument(t *testing.T) {
	_, errOut, code := runCLI(t, "pull", "--doc", filepath.Join(t.TempDir(), "nope.json"), "--path", "tags", "--cond", "1")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "failed to read document")
}

func TestPull_ConfigAndDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "oplog.db")
	cfg := writeFile(t, dir, "arraypull.yaml", "namespace: shop\nindexes: [items.sku]\ndatabase: "+db+"\n")
	cart := writeFile(t, dir, "cart.json", `{"items": [{"sku": "a"}, {"sku": "b"}]}`)

	for i := 0; i < 2; i++ {
		_, errOut, code := runCLI(t, "--config", cfg, "pull", "--doc", cart, "--path", "items", "--cond", "{sku: a}")
		require.Equal(t, ExitSuccess, code, errOut)
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ReadEntries(context.Background(), "shop", "cart")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []int64{1, 2}, []int64{entries[0].Seq, entries[1].Seq}, "second run resumes the clock")
}

func TestPull_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "bad.yaml", "workers: 0\n")
	d := writeFile(t, dir, "d.json", `{"t": [1]}`)

	_, errOut, code := runCLI(t, "--config", cfg, "pull", "--doc", d, "--path", "t", "--cond", "1")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "failed to load config")
}

func TestPull_VerboseDiff(t *testing.T) {
	dir := t.TempDir()
	d := writeFile(t, dir, "d.json", `{"t": [1, 2]}`)

	_, errOut, code := runCLI(t, "-v", "pull", "--doc", d, "--path", "t", "--cond", "1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, errOut, "-     1,")
	assert.Contains(t, errOut, "pull applied")
}
