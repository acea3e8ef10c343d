package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/testutil"
)

func testEntries(t *testing.T, docID string, clock oplog.Sequencer) []oplog.Entry {
	t.Helper()
	entries := []oplog.Entry{
		{Op: oplog.OpSet, Path: "tags", Value: doc.Array(doc.Int(1), doc.String("a"))},
		{Op: oplog.OpSet, Path: "meta.patterns", Value: doc.Array(doc.Regex("^x", "i"), doc.Double(2.5))},
	}
	stamped, err := oplog.Stamp(entries, oplog.Origin{Namespace: "app", DocID: docID}, clock)
	require.NoError(t, err)
	return stamped
}

func TestAppend_ReadEntries(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	entries := testEntries(t, "d1", testutil.NewDeterministicClock())

	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range entries {
		assert.Equal(t, entries[i].ID, got[i].ID)
		assert.Equal(t, entries[i].Seq, got[i].Seq)
		assert.Equal(t, entries[i].Path, got[i].Path)
		assert.Equal(t, entries[i].ValueHash, got[i].ValueHash)
		assert.Equal(t, entries[i].Value.String(), got[i].Value.String())
		assert.False(t, got[i].FromReplication)
	}
}

func TestAppend_PreservesFieldOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	value := doc.Array(
		doc.Object(doc.F("b", doc.Int(1)), doc.F("a", doc.Int(2))),
		doc.String("e\u0301"),
	)
	stamped, err := oplog.Stamp([]oplog.Entry{{Op: oplog.OpSet, Path: "items", Value: value}},
		oplog.Origin{Namespace: "app", DocID: "d1"}, testutil.NewDeterministicClock())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, stamped[0]))

	got, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, doc.Compare(value, got[0].Value, nil), "read %s", got[0].Value)
	assert.Equal(t, stamped[0].ValueHash, got[0].ValueHash)
}

func TestAppend_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e := testEntries(t, "d1", testutil.NewDeterministicClock())[0]

	require.NoError(t, s.Append(ctx, e))
	require.NoError(t, s.Append(ctx, e))

	got, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppend_DuplicateSeqFails(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	clock := testutil.NewDeterministicClock()
	first := testEntries(t, "d1", clock)[0]
	clock.Reset()
	second := testEntries(t, "d2", clock)[0]

	require.NoError(t, s.Append(ctx, first))
	assert.Error(t, s.Append(ctx, second))
}

func TestAppend_ComputesMissingHash(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e := oplog.Entry{ID: "e1", Seq: 1, Namespace: "app", DocID: "d1", Op: oplog.OpSet, Path: "x", Value: doc.Int(3)}

	require.NoError(t, s.Append(ctx, e))

	got, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	want, err := doc.Hash(doc.DomainLogValue, doc.Int(3))
	require.NoError(t, err)
	assert.Equal(t, want, got[0].ValueHash)
}

func TestAppendAll_Atomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	entries := testEntries(t, "d1", testutil.NewDeterministicClock())
	// Same seq as entries[0] with a different id.
	bad := entries[0]
	bad.ID = "conflict"

	err := s.AppendAll(ctx, append(entries, bad))
	require.Error(t, err)

	got, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	assert.Empty(t, got, "rolled back")

	require.NoError(t, s.AppendAll(ctx, entries))
	got, err = s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadEntries_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadEntries(context.Background(), "app", "missing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadEntries_HashMismatch(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Append(ctx, testEntries(t, "d1", testutil.NewDeterministicClock())[0]))

	_, err := s.db.Exec(`UPDATE oplog_entries SET value = '[1,"b"]'`)
	require.NoError(t, err)

	_, err = s.ReadEntries(ctx, "app", "d1")
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestListDocumentsAndEntries(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	clock := testutil.NewDeterministicClock()

	require.NoError(t, s.AppendAll(ctx, testEntries(t, "d2", clock)))
	require.NoError(t, s.AppendAll(ctx, testEntries(t, "d1", clock)))

	ids, err := s.ListDocuments(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1"}, ids)

	ids, err = s.ListDocuments(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)

	all, err := s.ListEntries(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	none, err := s.ListEntries(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLastSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.AppendAll(ctx, testEntries(t, "d1", oplog.NewClockAt(10))))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), seq)
}

func TestStore_IsSink(t *testing.T) {
	var _ oplog.Sink = (*Store)(nil)
}

func TestReplayFromStore(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	entries := testEntries(t, "d1", testutil.NewDeterministicClock())
	require.NoError(t, s.AppendAll(ctx, entries))

	stored, err := s.ReadEntries(ctx, "app", "d1")
	require.NoError(t, err)

	out, err := oplog.Replay([]byte(`{"tags":[1,2,"a"],"meta":{"patterns":[]}}`), stored)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[1,"a"],"meta":{"patterns":[{"$regex":"^x","$options":"i"},2.5]}}`, string(out))
}
