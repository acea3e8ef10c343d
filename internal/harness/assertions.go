package harness

import (
	"context"
	"fmt"

	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
)

func (h *Harness) evaluate(ctx context.Context, a Assertion, result *Result) error {
	switch a.Type {
	case AssertFinalDocument:
		return h.assertFinalDocument(a, result)
	case AssertLogCount:
		return h.assertLogCount(ctx, a, result)
	case AssertReplayMatches:
		return h.assertReplayMatches(ctx, a, result)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertFinalDocument compares field by field, in order.
func (h *Harness) assertFinalDocument(a Assertion, result *Result) error {
	want, err := nodeValue(&a.Expect)
	if err != nil {
		return fmt.Errorf("final_document %s: %w", a.Doc, err)
	}
	got := result.Final[a.Doc]
	if doc.Compare(got, want, nil) != 0 {
		result.AddError("final_document %s: got %s, want %s", a.Doc, got, want)
	}
	return nil
}

func (h *Harness) assertLogCount(ctx context.Context, a Assertion, result *Result) error {
	var (
		entries []oplog.Entry
		err     error
	)
	if a.Doc == "" {
		entries, err = h.store.ListEntries(ctx, h.cfg.Namespace)
	} else {
		entries, err = h.store.ReadEntries(ctx, h.cfg.Namespace, a.Doc)
	}
	if err != nil {
		return fmt.Errorf("log_count: %w", err)
	}
	if len(entries) != a.Count {
		result.AddError("log_count %s: got %d entries, want %d", a.Doc, len(entries), a.Count)
	}
	return nil
}

// assertReplayMatches replays the stored entries onto the initial document
// and compares the outcome with the final document.
func (h *Harness) assertReplayMatches(ctx context.Context, a Assertion, result *Result) error {
	entries, err := h.store.ReadEntries(ctx, h.cfg.Namespace, a.Doc)
	if err != nil {
		return fmt.Errorf("replay_matches: %w", err)
	}
	initial, err := doc.MarshalJSON(h.initial[a.Doc])
	if err != nil {
		return fmt.Errorf("replay_matches: %w", err)
	}
	replayed, err := oplog.Replay(initial, entries)
	if err != nil {
		result.AddError("replay_matches %s: %v", a.Doc, err)
		return nil
	}

	got, err := doc.UnmarshalJSON(replayed)
	if err != nil {
		return fmt.Errorf("replay_matches: %w", err)
	}
	want := result.Final[a.Doc]
	if doc.Compare(got, want, nil) != 0 {
		result.AddError("replay_matches %s: replica %s, original %s", a.Doc, got, want)
	}
	return nil
}
