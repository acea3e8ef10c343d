package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/config"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/store"
	"github.com/roach88/arraypull/internal/testutil"
)

func newEngine(t *testing.T, cfg config.Config, sink oplog.Sink) (*Engine, *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	e, err := New(cfg, sink, WithClock(clock))
	require.NoError(t, err)
	return e, clock
}

func request(t *testing.T, docID, src, dotted, cond string) Request {
	t.Helper()
	return Request{
		DocID:     docID,
		Document:  testutil.Document(t, src),
		Path:      dotted,
		Condition: testutil.Value(t, cond),
	}
}

func TestPull_RemovesAndLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Indexes = []string{"tags"}
	sink := oplog.NewMemorySink()
	e, _ := newEngine(t, cfg, sink)

	req := request(t, "d1", `{tags: [1, a, 2, a]}`, "tags", `a`)
	res, err := e.Pull(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.Noop)
	assert.True(t, res.IndexesAffected)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, `{"tags":[1,2]}`, testutil.JSON(t, req.Document.Value()))

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, int64(1), entry.Seq)
	assert.Equal(t, config.DefaultNamespace, entry.Namespace)
	assert.Equal(t, "d1", entry.DocID)
	assert.Equal(t, oplog.OpSet, entry.Op)
	assert.Equal(t, "tags", entry.Path)
	assert.Equal(t, `[1,2]`, testutil.JSON(t, entry.Value))
	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, entry.ValueHash)

	assert.Equal(t, res.Entries, sink.Entries())
}

func TestPull_Noop(t *testing.T) {
	sink := oplog.NewMemorySink()
	e, clock := newEngine(t, config.Default(), sink)

	tests := []struct {
		name string
		src  string
		path string
		cond string
	}{
		{"nothing matches", `{tags: [1, 2]}`, "tags", `3`},
		{"missing array", `{other: 1}`, "tags", `3`},
		{"missing nested parent", `{a: {}}`, "a.b.c", `{$gt: 0}`},
		{"empty array", `{tags: []}`, "tags", `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := request(t, "d", tc.src, tc.path, tc.cond)
			before := testutil.JSON(t, req.Document.Value())

			res, err := e.Pull(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, res.Noop)
			assert.False(t, res.IndexesAffected)
			assert.Empty(t, res.Entries)
			assert.Equal(t, before, testutil.JSON(t, req.Document.Value()))
		})
	}
	assert.Empty(t, sink.Entries())
	assert.Equal(t, 0, clock.Calls())
}

func TestPull_Errors(t *testing.T) {
	e, _ := newEngine(t, config.Default(), nil)

	tests := []struct {
		name  string
		req   Request
		check func(error) bool
	}{
		{"non array", request(t, "d", `{tags: 5}`, "tags", `5`), IsInvalidOperand},
		{"not viable", request(t, "d", `{s: 5}`, "s.t", `1`), IsPathNotViable},
		{"bad condition", request(t, "d", `{tags: [1]}`, "tags", `{$gt: 1, $foo: 2}`), IsParseError},
		{"bad path", request(t, "d", `{tags: [1]}`, "tags..x", `1`), IsParseError},
		{"no document", Request{DocID: "d", Path: "tags", Condition: doc.Int(1)}, IsInvalidOperand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Pull(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, tc.check(err), "got %v", err)

			var ue *UpdateError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, "d", ue.DocID)
		})
	}
}

func TestPull_BadCollation(t *testing.T) {
	e, _ := newEngine(t, config.Default(), nil)
	req := request(t, "d", `{tags: [a]}`, "tags", `a`)
	req.Collation = &collation.Spec{Locale: "en", Strength: 9}

	_, err := e.Pull(context.Background(), req)
	assert.True(t, IsInvalidConfig(err), "got %v", err)
}

func TestPull_RequestCollationOverridesDefault(t *testing.T) {
	e, _ := newEngine(t, config.Default(), nil)

	req := request(t, "d", `{names: [Alice, alice, Bob]}`, "names", `ALICE`)
	res, err := e.Pull(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Noop)

	req.Collation = &collation.Spec{Locale: "en", Strength: collation.StrengthSecondary}
	res, err = e.Pull(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, `{"names":["Bob"]}`, testutil.JSON(t, req.Document.Value()))
}

func TestPull_ImmutablePath(t *testing.T) {
	cfg := config.Default()
	cfg.ImmutablePaths = []string{"_id", "owner.roles"}
	e, _ := newEngine(t, cfg, nil)

	req := request(t, "d", `{owner: {roles: [admin, user]}}`, "owner.roles", `admin`)
	_, err := e.Pull(context.Background(), req)
	assert.True(t, IsImmutableField(err), "got %v", err)
	assert.Equal(t, `{"owner":{"roles":["admin","user"]}}`, testutil.JSON(t, req.Document.Value()))

	// Nothing would change, so the protected path is left alone silently.
	req = request(t, "d", `{owner: {roles: [user]}}`, "owner.roles", `admin`)
	res, err := e.Pull(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Noop)

	// Replicated updates bypass the check.
	req = request(t, "d", `{owner: {roles: [admin, user]}}`, "owner.roles", `admin`)
	req.FromReplication = true
	res, err = e.Pull(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.True(t, res.Entries[0].FromReplication)
}

type failingSink struct{}

func (failingSink) Append(context.Context, oplog.Entry) error {
	return errors.New("disk full")
}

func TestPull_SinkFailureIsInternal(t *testing.T) {
	e, _ := newEngine(t, config.Default(), failingSink{})
	_, err := e.Pull(context.Background(), request(t, "d", `{tags: [1]}`, "tags", `1`))
	assert.True(t, IsInternal(err), "got %v", err)
	assert.ErrorContains(t, err, "disk full")
}

func TestPull_Store(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "oplog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, _ := newEngine(t, config.Default(), s)
	req := request(t, "d1", `{a: {b: [{x: 1}, {x: 2}, {y: 1}]}}`, "a.b", `{x: {$gte: 1}}`)
	res, err := e.Pull(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)

	stored, err := s.ReadEntries(ctx, config.DefaultNamespace, "d1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Entries[0].ID, stored[0].ID)
	assert.Equal(t, "a.b", stored[0].Path)
	assert.Equal(t, `[{"y":1}]`, testutil.JSON(t, stored[0].Value))

	// A second engine resuming from the store continues the sequence.
	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	e2, err := New(config.Default(), s, WithClock(oplog.NewClockAt(last)))
	require.NoError(t, err)
	res, err = e2.Pull(ctx, request(t, "d2", `{t: [1]}`, "t", `1`))
	require.NoError(t, err)
	assert.Equal(t, last+1, res.Entries[0].Seq)
}

func TestPullMany(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 3
	sink := oplog.NewMemorySink()
	e, _ := newEngine(t, cfg, sink)

	var reqs []Request
	for i := 0; i < 10; i++ {
		reqs = append(reqs, request(t, fmt.Sprintf("d%d", i), `{n: [0, 1, 2, 3, 4, 5, 6, 7, 8, 9]}`, "n", fmt.Sprintf(`{$lte: %d}`, i)))
	}
	// A noop in the middle consumes no seq.
	reqs[4] = request(t, "d4", `{n: [10]}`, "n", `{$lte: 4}`)

	results, err := e.PullMany(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	var seqs []int64
	for i, res := range results {
		if i == 4 {
			assert.True(t, res.Noop)
			continue
		}
		assert.Equal(t, i+1, res.Removed, "request %d", i)
		require.Len(t, res.Entries, 1)
		assert.Equal(t, fmt.Sprintf("d%d", i), res.Entries[0].DocID)
		seqs = append(seqs, res.Entries[0].Seq)
	}
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i], "seqs follow request order")
	}
	assert.Len(t, sink.Entries(), 9)
}

func TestPullMany_ErrorCommitsNothing(t *testing.T) {
	sink := oplog.NewMemorySink()
	e, clock := newEngine(t, config.Default(), sink)

	reqs := []Request{
		request(t, "ok", `{n: [1]}`, "n", `1`),
		request(t, "bad", `{n: 1}`, "n", `1`),
	}
	_, err := e.PullMany(context.Background(), reqs)
	assert.True(t, IsInvalidOperand(err), "got %v", err)
	assert.Empty(t, sink.Entries())
	assert.Equal(t, 0, clock.Calls())
}

func TestPullMany_SharedDocument(t *testing.T) {
	e, _ := newEngine(t, config.Default(), nil)
	req := request(t, "d", `{n: [1]}`, "n", `1`)

	_, err := e.PullMany(context.Background(), []Request{req, req})
	assert.True(t, IsInvalidOperand(err), "got %v", err)
}

func TestPullMany_Canceled(t *testing.T) {
	e, _ := newEngine(t, config.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.PullMany(ctx, []Request{request(t, "d", `{n: [1]}`, "n", `1`)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 0
	_, err := New(cfg, nil)
	assert.True(t, IsInvalidConfig(err), "got %v", err)
}

func TestUpdateError_Format(t *testing.T) {
	err := &UpdateError{Code: ErrCodeParse, Message: "invalid path", Namespace: "app", DocID: "d1", Err: errors.New("empty component")}
	assert.Equal(t, "PARSE_ERROR: invalid path: empty component (ns=app, doc=d1)", err.Error())
	assert.Equal(t, ErrCodeParse, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
