package harness

import (
	"fmt"

	"github.com/roach88/arraypull/internal/doc"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step            int
	DocID           string
	Path            string
	Noop            bool
	IndexesAffected bool
	Removed         int
	Error           string // error code, empty on success
	Entries         []TraceEntry
}

// TraceEntry is a log entry without its id and hash.
type TraceEntry struct {
	Seq   int64
	Path  string
	Value doc.Value
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	// Trace has one event per step, in order.
	Trace []TraceEvent

	// Errors lists failed expectations and assertions.
	Errors []string

	// Final holds each document after the last step.
	Final map[string]doc.Value
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string]doc.Value),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Snapshot renders the trace and final documents as one value for golden
// comparison.
func (r *Result) Snapshot(name string) doc.Value {
	events := make([]doc.Value, 0, len(r.Trace))
	for _, ev := range r.Trace {
		entries := make([]doc.Value, 0, len(ev.Entries))
		for _, e := range ev.Entries {
			entries = append(entries, doc.Object(
				doc.F("seq", doc.Int(e.Seq)),
				doc.F("path", doc.String(e.Path)),
				doc.F("value", e.Value),
			))
		}
		fields := []doc.Field{
			doc.F("step", doc.Int(int64(ev.Step))),
			doc.F("doc", doc.String(ev.DocID)),
			doc.F("path", doc.String(ev.Path)),
		}
		if ev.Error != "" {
			fields = append(fields, doc.F("error", doc.String(ev.Error)))
		} else {
			fields = append(fields,
				doc.F("noop", doc.Bool(ev.Noop)),
				doc.F("indexes_affected", doc.Bool(ev.IndexesAffected)),
				doc.F("removed", doc.Int(int64(ev.Removed))),
				doc.F("entries", doc.Array(entries...)),
			)
		}
		events = append(events, doc.Object(fields...))
	}

	final := make([]doc.Field, 0, len(r.Final))
	for id, v := range r.Final {
		final = append(final, doc.F(id, v))
	}
	return doc.Object(
		doc.F("scenario", doc.String(name)),
		doc.F("trace", doc.Array(events...)),
		doc.F("final", doc.Object(final...)),
	)
}
