// Package store provides SQLite-backed durable storage for pull log entries.
//
// The store is an append-only table of oplog entries, one row per $set
// produced by an update. Rows are keyed by the entry's logical sequence
// number and deduplicated by entry id, so re-appending the same entry is a
// no-op.
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER from the oplog clock, NEVER timestamps
//   - Replay order is identical regardless of wall time
//
// Deterministic query results:
//   - All queries include ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Content integrity:
//   - Values are stored as canonical JSON (RFC 8785)
//   - value_hash is recomputed on read; a mismatch is an error
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
