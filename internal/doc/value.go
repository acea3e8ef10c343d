package doc

import (
	"fmt"
	"strings"
)

// Type tags a Value or an Element.
type Type uint8

const (
	NullType Type = iota
	BoolType
	IntType
	DoubleType
	StringType
	RegexType
	ObjectType
	ArrayType
)

var typeNames = map[Type]string{
	NullType:   "null",
	BoolType:   "bool",
	IntType:    "int",
	DoubleType: "double",
	StringType: "string",
	RegexType:  "regex",
	ObjectType: "object",
	ArrayType:  "array",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// IsNumber reports whether t is one of the numeric types.
func (t Type) IsNumber() bool {
	return t == IntType || t == DoubleType
}

// IsContainer reports whether t holds child values.
func (t Type) IsContainer() bool {
	return t == ObjectType || t == ArrayType
}

// TypeFromName returns the type for a name as produced by Type.String.
// "number" is accepted and maps to IntType; callers that care about the
// numeric bracket should compare canonical ranks instead.
func TypeFromName(name string) (Type, bool) {
	if name == "number" {
		return IntType, true
	}
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// CanonicalRank groups types into comparison brackets. Values of different
// brackets order by rank; Int and Double share one.
//
// Order: Null < numbers < String < Object < Array < Bool < Regex
func CanonicalRank(t Type) int {
	switch t {
	case NullType:
		return 5
	case IntType, DoubleType:
		return 10
	case StringType:
		return 15
	case ObjectType:
		return 20
	case ArrayType:
		return 25
	case BoolType:
		return 40
	case RegexType:
		return 50
	}
	return 100
}

// Field is a named member of an object Value.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for constructing a Field.
// Example: Object(F("name", String("cart")), F("count", Int(5)))
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Value is an immutable document value. The zero Value is null.
//
// Slices returned by Fields and Elems are shared with the Value and must not
// be modified.
type Value struct {
	typ    Type
	b      bool
	i      int64
	f      float64
	s      string // string value or regex pattern
	opts   string // regex options
	fields []Field
	elems  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{typ: BoolType, b: b} }

// Int returns a 64-bit integer value.
func Int(i int64) Value { return Value{typ: IntType, i: i} }

// Double returns a floating point value.
func Double(f float64) Value { return Value{typ: DoubleType, f: f} }

// String returns a string value.
func String(s string) Value { return Value{typ: StringType, s: s} }

// Regex returns a regular expression value. Options are single-letter flags.
func Regex(pattern, options string) Value {
	return Value{typ: RegexType, s: pattern, opts: options}
}

// Object returns an object value holding fields in the given order.
func Object(fields ...Field) Value {
	if fields == nil {
		fields = []Field{}
	}
	return Value{typ: ObjectType, fields: fields}
}

// Array returns an array value.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{typ: ArrayType, elems: elems}
}

func (v Value) Type() Type { return v.typ }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Double() float64 { return v.f }

// Number returns the numeric value as a float64 for either numeric type.
func (v Value) Number() float64 {
	if v.typ == IntType {
		return float64(v.i)
	}
	return v.f
}

// Str returns the string of a StringType value.
func (v Value) Str() string { return v.s }

// Pattern returns the pattern of a RegexType value.
func (v Value) Pattern() string { return v.s }

// Options returns the options of a RegexType value.
func (v Value) Options() string { return v.opts }

// Fields returns the fields of an object value.
func (v Value) Fields() []Field { return v.fields }

// Elems returns the elements of an array value.
func (v Value) Elems() []Value { return v.elems }

// Len returns the number of fields or elements of a container value.
func (v Value) Len() int {
	switch v.typ {
	case ObjectType:
		return len(v.fields)
	case ArrayType:
		return len(v.elems)
	}
	return 0
}

// FirstField returns the first field of an object value.
func (v Value) FirstField() (Field, bool) {
	if v.typ != ObjectType || len(v.fields) == 0 {
		return Field{}, false
	}
	return v.fields[0], true
}

// Lookup returns the first field named name of an object value.
func (v Value) Lookup(name string) (Value, bool) {
	if v.typ != ObjectType {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Wrap returns a single-field object {name: v}.
func (v Value) Wrap(name string) Value {
	return Object(F(name, v))
}

// String renders v in a compact JSON-like form for diagnostics.
func (v Value) String() string {
	var sb strings.Builder
	writeDebug(&sb, v)
	return sb.String()
}

func writeDebug(sb *strings.Builder, v Value) {
	switch v.typ {
	case NullType:
		sb.WriteString("null")
	case BoolType:
		fmt.Fprintf(sb, "%t", v.b)
	case IntType:
		fmt.Fprintf(sb, "%d", v.i)
	case DoubleType:
		fmt.Fprintf(sb, "%v", v.f)
	case StringType:
		fmt.Fprintf(sb, "%q", v.s)
	case RegexType:
		fmt.Fprintf(sb, "/%s/%s", v.s, v.opts)
	case ObjectType:
		sb.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q: ", f.Name)
			writeDebug(sb, f.Value)
		}
		sb.WriteByte('}')
	case ArrayType:
		sb.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDebug(sb, e)
		}
		sb.WriteByte(']')
	}
}
