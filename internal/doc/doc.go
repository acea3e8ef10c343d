// Package doc provides the document representations used by the update
// operators.
//
// There are two of them:
//   - Value: an immutable, ordered value tree. Conditions, log entries and
//     materialized element values are Values.
//   - Document / Element: a mutable tree held in an arena of nodes addressed
//     by stable integer ids. Element is a cursor into a Document.
//
// Object field order is significant and preserved everywhere except in
// MarshalCanonical, which sorts keys for hashing.
//
// This package imports nothing internal. A Document is not safe for
// concurrent mutation; callers own the tree for the duration of an update.
package doc
