package pull

import (
	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/path"
)

// IndexLookup reports whether a dotted path might be covered by an index.
// *index.Catalog implements it.
type IndexLookup interface {
	MightBeIndexed(dotted string) bool
}

// LogBuilder accepts full-value $set entries. *oplog.Builder implements it.
type LogBuilder interface {
	Document() *doc.Document
	AddToSets(elem doc.Element) error
}

// ApplyParams holds the per-call inputs of Apply.
type ApplyParams struct {
	// Element is the deepest element that exists on the target path: the
	// array itself when PathToCreate is empty.
	Element doc.Element

	// PathToCreate is the part of the target path missing from the document.
	PathToCreate path.FieldRef

	// PathTaken is the part of the target path that exists.
	PathTaken path.FieldRef

	// MatchedField is the array field a positional operator resolved to.
	// The pull operator does not use it.
	MatchedField string

	// FromReplication is set when the update is replayed from a log.
	// Immutable paths are not enforced for replicated updates.
	FromReplication bool

	// ValidateForStorage requests storage validation of the new value.
	// Removing elements cannot produce an invalid value, so pull accepts
	// and ignores it.
	ValidateForStorage bool

	// ImmutablePaths lists paths that must not be modified.
	ImmutablePaths *path.FieldRefSet

	// IndexData, when set, decides ApplyResult.IndexesAffected.
	IndexData IndexLookup

	// LogBuilder, when set, receives the log entry.
	LogBuilder LogBuilder
}

// ApplyResult reports the outcome of Apply.
type ApplyResult struct {
	// Noop is true when the array does not exist or nothing matched.
	Noop bool

	// IndexesAffected is true when elements were removed and IndexData
	// reports the path as indexed.
	IndexesAffected bool

	// Removed is the number of elements removed.
	Removed int
}

// Node is a configured pull operator.
type Node struct {
	matcher matcher
	ready   bool
}

// New is Init on a fresh Node.
func New(cond doc.Value, c collation.Collator) (*Node, error) {
	n := &Node{}
	if err := n.Init(cond, c); err != nil {
		return nil, err
	}
	return n, nil
}

// Init classifies cond and compiles it. A nil collator compares strings by
// code point. Init fails with ErrCodeParse when the condition is rejected.
func (n *Node) Init(cond doc.Value, c collation.Collator) error {
	m, err := newMatcher(cond, c)
	if err != nil {
		return &Error{Code: ErrCodeParse, Message: "invalid $pull condition", Err: err}
	}
	n.matcher = m
	n.ready = true
	return nil
}

// Kind names the selected matcher: "equality", "object" or
// "wrappedObject".
func (n *Node) Kind() string {
	return n.matcher.kind.String()
}

// SetCollator replaces the collator for later calls to Apply.
func (n *Node) SetCollator(c collation.Collator) {
	n.matcher.setCollator(c)
}

func (n *Node) Collator() collation.Collator {
	return n.matcher.collator
}

// Clone returns a node with the same matcher and condition. Collator
// changes on either node do not affect the other.
func (n *Node) Clone() *Node {
	return &Node{matcher: n.matcher.clone(), ready: n.ready}
}

// Apply removes every matching element of the target array.
func (n *Node) Apply(p ApplyParams) (ApplyResult, error) {
	if !n.ready {
		return ApplyResult{}, &Error{Code: ErrCodeInternal, Message: "pull node used before Init"}
	}
	dotted := p.PathTaken.Dotted()

	if !p.PathToCreate.Empty() {
		// The array does not exist. That is a no-op if it could have been
		// created, and an error if something else is in the way.
		if err := path.CheckViability(p.Element, p.PathToCreate, p.PathTaken); err != nil {
			full := path.Concat(p.PathTaken, p.PathToCreate).Dotted()
			return ApplyResult{}, &Error{Code: ErrCodePathNotViable, Message: "path cannot be created", Path: full, Err: err}
		}
		return ApplyResult{Noop: true}, nil
	}

	if p.Element.Type() != doc.ArrayType {
		return ApplyResult{}, &Error{Code: ErrCodeInvalidOperand, Message: "Cannot apply $pull to a non-array value", Path: dotted}
	}

	if !p.FromReplication {
		if err := n.checkImmutable(p); err != nil {
			return ApplyResult{}, err
		}
	}

	removed := 0
	for cur := p.Element.LeftChild(); cur.OK(); {
		next := cur.RightSibling()
		if n.matcher.match(cur) {
			if err := cur.Remove(); err != nil {
				return ApplyResult{}, &Error{Code: ErrCodeInternal, Message: "could not remove element", Path: dotted, Err: err}
			}
			removed++
		}
		cur = next
	}

	if removed == 0 {
		return ApplyResult{Noop: true}, nil
	}

	res := ApplyResult{Removed: removed}
	if p.IndexData != nil {
		res.IndexesAffected = p.IndexData.MightBeIndexed(dotted)
	}
	if p.LogBuilder != nil {
		if err := logArray(p.LogBuilder, dotted, p.Element); err != nil {
			return ApplyResult{}, err
		}
	}
	return res, nil
}

// checkImmutable fails when the target overlaps an immutable path and at
// least one element would be removed. It runs before any removal.
func (n *Node) checkImmutable(p ApplyParams) error {
	conflict, ok := p.ImmutablePaths.FindConflict(p.PathTaken)
	if !ok {
		return nil
	}
	for cur := p.Element.LeftChild(); cur.OK(); cur = cur.RightSibling() {
		if n.matcher.match(cur) {
			return &Error{
				Code:    ErrCodeImmutableField,
				Message: "Performing an update on the path '" + p.PathTaken.Dotted() + "' would modify the immutable field '" + conflict.Dotted() + "'",
				Path:    p.PathTaken.Dotted(),
			}
		}
	}
	return nil
}

// logArray records the post-removal array as {dotted: [remaining...]}. The
// entry always carries the whole array, never the removed positions.
func logArray(b LogBuilder, dotted string, array doc.Element) error {
	d := b.Document()
	if d == nil {
		return &Error{Code: ErrCodeInternal, Message: "log builder has no document", Path: dotted}
	}
	out := d.MakeElementArray(dotted)
	for cur := array.LeftChild(); cur.OK(); cur = cur.RightSibling() {
		cp := d.MakeElementWithNewFieldName("", cur.Value())
		if !cp.OK() {
			return &Error{Code: ErrCodeInternal, Message: "could not create copy element", Path: dotted}
		}
		if err := out.PushBack(cp); err != nil {
			return &Error{Code: ErrCodeInternal, Message: "could not create copy element", Path: dotted, Err: err}
		}
	}
	if err := b.AddToSets(out); err != nil {
		return &Error{Code: ErrCodeInternal, Message: "could not append log entry", Path: dotted, Err: err}
	}
	return nil
}
