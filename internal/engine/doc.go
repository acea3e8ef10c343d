// Package engine drives pull updates end to end.
//
// A pull runs in two phases. The apply phase resolves the target path,
// compiles the condition and removes matching elements from the caller's
// document; it touches nothing but that document. The commit phase stamps
// the resulting log entries with sequence numbers and ids and appends them
// to the sink.
//
// PullMany runs apply phases concurrently, one goroutine per document, and
// commits afterwards in request order. Sequence numbers therefore follow
// request order, not completion order.
//
// Each apply builds its own collator. Collators are not safe for concurrent
// use and are never shared between goroutines.
package engine
