package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
)

// ErrHashMismatch is returned when a stored value no longer matches its
// recorded hash.
var ErrHashMismatch = errors.New("store: value hash mismatch")

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append inserts an entry. It uses ON CONFLICT(id) DO NOTHING, so
// appending the same entry twice is silently ignored. A different entry
// reusing an existing seq is still an error.
func (s *Store) Append(ctx context.Context, e oplog.Entry) error {
	return insertEntry(ctx, s.db, e)
}

// AppendAll inserts entries in one transaction: either all are stored or
// none are.
func (s *Store) AppendAll(ctx context.Context, entries []oplog.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	for _, e := range entries {
		if err := insertEntry(ctx, tx, e); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// insertEntry stores the value in field order; the hash covers its
// canonical form.
func insertEntry(ctx context.Context, db execer, e oplog.Entry) error {
	value, err := doc.MarshalJSON(e.Value)
	if err != nil {
		return fmt.Errorf("append entry %s: %w", e.ID, err)
	}
	hash := e.ValueHash
	if hash == "" {
		if hash, err = doc.Hash(doc.DomainLogValue, e.Value); err != nil {
			return fmt.Errorf("append entry %s: %w", e.ID, err)
		}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO oplog_entries
		(seq, id, namespace, doc_id, op, path, value, value_hash, from_replication)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.Seq,
		e.ID,
		e.Namespace,
		e.DocID,
		e.Op,
		e.Path,
		string(value),
		hash,
		e.FromReplication,
	)
	if err != nil {
		return fmt.Errorf("append entry %s: %w", e.ID, err)
	}
	return nil
}

// ReadEntries returns the entries of one document in log order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadEntries(ctx context.Context, namespace, docID string) ([]oplog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, namespace, doc_id, op, path, value, value_hash, from_replication
		FROM oplog_entries
		WHERE namespace = ? AND doc_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, namespace, docID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// ListEntries returns every entry of a namespace in log order. An empty
// namespace lists all namespaces.
func (s *Store) ListEntries(ctx context.Context, namespace string) ([]oplog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, namespace, doc_id, op, path, value, value_hash, from_replication
		FROM oplog_entries
		WHERE ? = '' OR namespace = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, namespace, namespace)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// ListDocuments returns the ids of documents with entries in namespace,
// ordered by their first entry.
func (s *Store) ListDocuments(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id
		FROM oplog_entries
		WHERE namespace = ?
		GROUP BY doc_id
		ORDER BY MIN(seq) ASC, doc_id COLLATE BINARY ASC
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return ids, nil
}

// LastSeq returns the highest stored seq, or 0 for an empty store. The
// engine resumes its clock from it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM oplog_entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEntries(rows *sql.Rows) ([]oplog.Entry, error) {
	defer rows.Close()

	entries := []oplog.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (oplog.Entry, error) {
	var (
		e     oplog.Entry
		value string
	)
	err := rows.Scan(&e.Seq, &e.ID, &e.Namespace, &e.DocID, &e.Op, &e.Path, &value, &e.ValueHash, &e.FromReplication)
	if err != nil {
		return oplog.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	v, err := doc.UnmarshalJSON([]byte(value))
	if err != nil {
		return oplog.Entry{}, fmt.Errorf("decode value of entry %s: %w", e.ID, err)
	}
	hash, err := doc.Hash(doc.DomainLogValue, v)
	if err != nil {
		return oplog.Entry{}, fmt.Errorf("hash value of entry %s: %w", e.ID, err)
	}
	if hash != e.ValueHash {
		return oplog.Entry{}, fmt.Errorf("entry %s: %w", e.ID, ErrHashMismatch)
	}
	e.Value = v
	return e, nil
}
