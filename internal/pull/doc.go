// Package pull implements the array pull update operator: remove every
// element of an array field that matches a condition.
//
// A Node is configured once with a condition. Init classifies it into one
// of three matchers, fixed for the node's lifetime:
//
//   - object: the condition is an object whose first key is not a field
//     operator, e.g. {x: {$gt: 3}}. Only object elements can match; each
//     is evaluated as a document.
//   - wrappedObject: the condition is a regex or an operator object such as
//     {$gte: 5}. Both sides are lifted to {"": value} so the same
//     evaluator compares bare values.
//   - equality: anything else. Elements match when they compare equal to
//     the condition under the node's collation.
//
// Apply runs the matcher over one concrete array, removing matches in place
// and reporting whether the change is a no-op, whether it might touch an
// index, and a full-array $set entry for the change log.
//
// A Node is not safe for concurrent use. The caller must hold exclusive
// access to the target subtree for the duration of Apply.
package pull
