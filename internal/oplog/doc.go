// Package oplog records the net effect of a pull as replicable entries.
//
// A Builder owns a small document of the form {"$set": {"<path>": value}}.
// Update operators append fields to it; Entries turns them into Entry
// values that a Sink (the SQLite store, or MemorySink in tests) persists
// in sequence order. Patch and Replay render entries as RFC 6902 JSON
// Patch so a replica can reproduce the post-update state from the log
// alone.
package oplog
