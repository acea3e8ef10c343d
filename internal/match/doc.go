// Package match compiles query-style conditions into expressions that test
// object values.
//
// A condition is an object. Each field is either a logical operator
// ($and, $or, $nor) or a dotted field path mapped to a literal (equality)
// or an operator object:
//
//	{qty: {$gt: 3, $lte: 9}, "tags.name": /^a/, $or: [{x: 1}, {y: null}]}
//
// Field paths descend into objects by name and into arrays either by a
// numeric component or implicitly, over every object element. A predicate
// on a path holding an array matches if the array itself or any of its
// elements satisfies it ($size and $elemMatch look at the array only).
// $ne, $nin, $not and {$exists: false} negate the whole path.
//
// Comparison operators only compare values of the same canonical type
// bracket (see doc.CanonicalRank); strings are compared with the
// expression's collator.
package match
