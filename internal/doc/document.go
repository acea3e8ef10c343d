package doc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidElement is returned when operating on an element that is not OK.
	ErrInvalidElement = errors.New("invalid element")

	// ErrForeignElement is returned when an element of one document is
	// attached to another.
	ErrForeignElement = errors.New("element belongs to a different document")

	// ErrAttached is returned when pushing an element that already has a parent.
	ErrAttached = errors.New("element is already attached")

	// ErrNotContainer is returned when adding children to a non-container.
	ErrNotContainer = errors.New("element is not an object or array")

	// ErrRemoveRoot is returned when removing the root element.
	ErrRemoveRoot = errors.New("cannot remove the root element")
)

type nodeID int32

const invalidID nodeID = -1

// node is one arena slot. Scalar payloads live in val; container children
// are linked through firstChild/lastChild and sibling ids.
type node struct {
	name       string
	typ        Type
	val        Value
	parent     nodeID
	left       nodeID
	right      nodeID
	firstChild nodeID
	lastChild  nodeID
}

// Document is a mutable document tree. Nodes are never reused, so an
// Element stays addressable after removal; removal only clears the
// removed node's own links.
type Document struct {
	nodes []node
	root  nodeID
}

// NewDocument creates a document whose root is an empty object.
func NewDocument() *Document {
	return NewDocumentFrom(Object())
}

// NewDocumentFrom creates a document whose root holds a copy of v.
func NewDocumentFrom(v Value) *Document {
	d := &Document{}
	d.root = d.build("", v)
	return d
}

// Root returns the root element.
func (d *Document) Root() Element {
	return Element{doc: d, id: d.root}
}

// Value materializes the whole document.
func (d *Document) Value() Value {
	return d.Root().Value()
}

// MakeElement creates a detached element named name holding a copy of v.
func (d *Document) MakeElement(name string, v Value) Element {
	if d == nil {
		return Element{id: invalidID}
	}
	return Element{doc: d, id: d.build(name, v)}
}

// MakeElementWithNewFieldName creates a detached copy of v under a new name.
// It is the constructor used when copying element values into another document.
func (d *Document) MakeElementWithNewFieldName(name string, v Value) Element {
	return d.MakeElement(name, v)
}

// MakeElementArray creates a detached, empty array element.
func (d *Document) MakeElementArray(name string) Element {
	return d.MakeElement(name, Array())
}

// MakeElementObject creates a detached, empty object element.
func (d *Document) MakeElementObject(name string) Element {
	return d.MakeElement(name, Object())
}

func (d *Document) alloc(name string, t Type) nodeID {
	d.nodes = append(d.nodes, node{
		name:       name,
		typ:        t,
		parent:     invalidID,
		left:       invalidID,
		right:      invalidID,
		firstChild: invalidID,
		lastChild:  invalidID,
	})
	return nodeID(len(d.nodes) - 1)
}

func (d *Document) build(name string, v Value) nodeID {
	id := d.alloc(name, v.typ)
	switch v.typ {
	case ObjectType:
		for _, f := range v.fields {
			d.link(id, d.build(f.Name, f.Value))
		}
	case ArrayType:
		for _, e := range v.elems {
			d.link(id, d.build("", e))
		}
	default:
		d.nodes[id].val = v
	}
	return id
}

// link appends child as the last child of parent. Both must be valid.
func (d *Document) link(parent, child nodeID) {
	p := &d.nodes[parent]
	c := &d.nodes[child]
	c.parent = parent
	c.left = p.lastChild
	c.right = invalidID
	if p.lastChild != invalidID {
		d.nodes[p.lastChild].right = child
	} else {
		p.firstChild = child
	}
	p.lastChild = child
}

func (d *Document) unlink(id nodeID) {
	n := &d.nodes[id]
	if n.parent == invalidID {
		return
	}
	p := &d.nodes[n.parent]
	if n.left != invalidID {
		d.nodes[n.left].right = n.right
	} else {
		p.firstChild = n.right
	}
	if n.right != invalidID {
		d.nodes[n.right].left = n.left
	} else {
		p.lastChild = n.left
	}
	n.parent, n.left, n.right = invalidID, invalidID, invalidID
}

// Element is a cursor into a Document. The zero Element is not OK.
type Element struct {
	doc *Document
	id  nodeID
}

func (e Element) OK() bool {
	return e.doc != nil && e.id >= 0 && int(e.id) < len(e.doc.nodes)
}

func (e Element) node() *node {
	return &e.doc.nodes[e.id]
}

func (e Element) to(id nodeID) Element {
	if id == invalidID {
		return Element{id: invalidID}
	}
	return Element{doc: e.doc, id: id}
}

// Document returns the owning document, or nil for an invalid element.
func (e Element) Document() *Document {
	if !e.OK() {
		return nil
	}
	return e.doc
}

func (e Element) Type() Type {
	if !e.OK() {
		return NullType
	}
	return e.node().typ
}

func (e Element) FieldName() string {
	if !e.OK() {
		return ""
	}
	return e.node().name
}

func (e Element) Parent() Element {
	if !e.OK() {
		return Element{id: invalidID}
	}
	return e.to(e.node().parent)
}

func (e Element) LeftChild() Element {
	if !e.OK() {
		return Element{id: invalidID}
	}
	return e.to(e.node().firstChild)
}

func (e Element) RightChild() Element {
	if !e.OK() {
		return Element{id: invalidID}
	}
	return e.to(e.node().lastChild)
}

func (e Element) LeftSibling() Element {
	if !e.OK() {
		return Element{id: invalidID}
	}
	return e.to(e.node().left)
}

func (e Element) RightSibling() Element {
	if !e.OK() {
		return Element{id: invalidID}
	}
	return e.to(e.node().right)
}

// IsAttached reports whether e has a parent or is the document root.
func (e Element) IsAttached() bool {
	if !e.OK() {
		return false
	}
	return e.id == e.doc.root || e.node().parent != invalidID
}

// FindFirstChildNamed returns the first child named name.
func (e Element) FindFirstChildNamed(name string) Element {
	for c := e.LeftChild(); c.OK(); c = c.RightSibling() {
		if c.FieldName() == name {
			return c
		}
	}
	return Element{id: invalidID}
}

// FindNthChild returns the nth child (zero based).
func (e Element) FindNthChild(n int) Element {
	c := e.LeftChild()
	for ; c.OK() && n > 0; n-- {
		c = c.RightSibling()
	}
	return c
}

// CountChildren returns the number of children of a container element.
func (e Element) CountChildren() int {
	n := 0
	for c := e.LeftChild(); c.OK(); c = c.RightSibling() {
		n++
	}
	return n
}

// HasValue reports whether the element can produce a value.
func (e Element) HasValue() bool {
	return e.OK()
}

// Value materializes the element's value.
func (e Element) Value() Value {
	if !e.OK() {
		return Value{}
	}
	n := e.node()
	switch n.typ {
	case ObjectType:
		fields := make([]Field, 0)
		for c := e.LeftChild(); c.OK(); c = c.RightSibling() {
			fields = append(fields, Field{Name: c.FieldName(), Value: c.Value()})
		}
		return Object(fields...)
	case ArrayType:
		elems := make([]Value, 0)
		for c := e.LeftChild(); c.OK(); c = c.RightSibling() {
			elems = append(elems, c.Value())
		}
		return Array(elems...)
	}
	return n.val
}

// Remove detaches e from its parent. Neighbouring siblings are re-linked;
// e's own sibling links are cleared, so callers iterating must capture
// RightSibling before calling Remove.
func (e Element) Remove() error {
	if !e.OK() {
		return ErrInvalidElement
	}
	if e.id == e.doc.root {
		return ErrRemoveRoot
	}
	e.doc.unlink(e.id)
	return nil
}

// PushBack appends child as the last child of e.
func (e Element) PushBack(child Element) error {
	if !e.OK() || !child.OK() {
		return ErrInvalidElement
	}
	if e.doc != child.doc {
		return ErrForeignElement
	}
	if !e.node().typ.IsContainer() {
		return fmt.Errorf("push back onto %s: %w", e.node().typ, ErrNotContainer)
	}
	if child.IsAttached() {
		return ErrAttached
	}
	for p := e; p.OK(); p = p.Parent() {
		if p.id == child.id {
			return fmt.Errorf("cannot push an element into its own subtree")
		}
	}
	e.doc.link(e.id, child.id)
	return nil
}

// SetValue replaces e's value in place. The field name and position are kept.
func (e Element) SetValue(v Value) error {
	if !e.OK() {
		return ErrInvalidElement
	}
	for c := e.LeftChild(); c.OK(); {
		next := c.RightSibling()
		e.doc.unlink(c.id)
		c = next
	}
	n := e.node()
	n.typ = v.typ
	n.val = Value{}
	switch v.typ {
	case ObjectType:
		for _, f := range v.fields {
			e.doc.link(e.id, e.doc.build(f.Name, f.Value))
		}
	case ArrayType:
		for _, el := range v.elems {
			e.doc.link(e.id, e.doc.build("", el))
		}
	default:
		e.doc.nodes[e.id].val = v
	}
	return nil
}

// CompareWithValue compares e's value with v. See CompareFields.
func (e Element) CompareWithValue(v Value, c StringComparator, considerFieldName bool) int {
	return CompareFields(
		Field{Name: e.FieldName(), Value: e.Value()},
		Field{Name: "", Value: v},
		c,
		considerFieldName,
	)
}

// CompareWithField compares e, including its name, with a named value.
func (e Element) CompareWithField(f Field, c StringComparator, considerFieldName bool) int {
	return CompareFields(Field{Name: e.FieldName(), Value: e.Value()}, f, c, considerFieldName)
}

func (e Element) String() string {
	if !e.OK() {
		return "<invalid>"
	}
	if name := e.FieldName(); name != "" {
		return fmt.Sprintf("%q: %s", name, e.Value())
	}
	return e.Value().String()
}
