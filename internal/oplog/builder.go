package oplog

import (
	"errors"
	"fmt"

	"github.com/roach88/arraypull/internal/doc"
)

// OpSet is the only operation a pull records: the full post-update value
// of the modified field.
const OpSet = "$set"

var (
	// ErrForeignElement is returned when an element was not created by the
	// builder's own document.
	ErrForeignElement = errors.New("oplog: element belongs to another document")
	// ErrUnnamedElement is returned for $set entries without a path.
	ErrUnnamedElement = errors.New("oplog: $set element needs a field path name")
)

// Builder accumulates log entries for one update. Elements passed to
// AddToSets must be created through Document().
type Builder struct {
	doc *doc.Document
	set doc.Element
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	d := doc.NewDocumentFrom(doc.Object(doc.F(OpSet, doc.Object())))
	return &Builder{doc: d, set: d.Root().FindFirstChildNamed(OpSet)}
}

// Document returns the builder's document for creating log elements.
func (b *Builder) Document() *doc.Document {
	return b.doc
}

// AddToSets appends elem, named with the dotted path it sets, to the $set
// section.
func (b *Builder) AddToSets(elem doc.Element) error {
	if !elem.OK() {
		return doc.ErrInvalidElement
	}
	if elem.Document() != b.doc {
		return ErrForeignElement
	}
	if elem.FieldName() == "" {
		return ErrUnnamedElement
	}
	if err := b.set.PushBack(elem); err != nil {
		return fmt.Errorf("add %q to $set: %w", elem.FieldName(), err)
	}
	return nil
}

// Len returns the number of recorded $set fields.
func (b *Builder) Len() int {
	return b.set.CountChildren()
}

// Value returns the whole log document, e.g. {"$set": {"tags": [1, "a"]}}.
func (b *Builder) Value() doc.Value {
	return b.doc.Value()
}

// Entries returns one unstamped entry per $set field, in insertion order.
// Use Stamp to assign identity before appending them to a Sink.
func (b *Builder) Entries() []Entry {
	entries := make([]Entry, 0, b.Len())
	for c := b.set.LeftChild(); c.OK(); c = c.RightSibling() {
		entries = append(entries, Entry{
			Op:    OpSet,
			Path:  c.FieldName(),
			Value: c.Value(),
		})
	}
	return entries
}
