package oplog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/arraypull/internal/doc"
)

// Entry is one replicable change to one document.
type Entry struct {
	ID              string    `json:"id"`
	Seq             int64     `json:"seq"`
	Namespace       string    `json:"namespace"`
	DocID           string    `json:"doc_id"`
	Op              string    `json:"op"`
	Path            string    `json:"path"`
	Value           doc.Value `json:"-"`
	ValueHash       string    `json:"value_hash"`
	FromReplication bool      `json:"from_replication"`
}

// Origin identifies the document the entries of one update belong to.
type Origin struct {
	Namespace       string
	DocID           string
	FromReplication bool
}

// Stamp assigns ids, sequence numbers and value hashes to entries. Entries
// are modified in place and returned.
func Stamp(entries []Entry, origin Origin, seq Sequencer) ([]Entry, error) {
	for i := range entries {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate entry id: %w", err)
		}
		hash, err := doc.Hash(doc.DomainLogValue, entries[i].Value)
		if err != nil {
			return nil, fmt.Errorf("hash value of %q: %w", entries[i].Path, err)
		}
		entries[i].ID = id.String()
		entries[i].Seq = seq.Next()
		entries[i].Namespace = origin.Namespace
		entries[i].DocID = origin.DocID
		entries[i].FromReplication = origin.FromReplication
		entries[i].ValueHash = hash
	}
	return entries, nil
}

// Sink persists entries.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// MemorySink keeps entries in memory in append order.
//
// Thread-safety: MemorySink is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Entries returns a copy of everything appended so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
