package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON renders v as JSON, keeping object field order. Regexes are
// written in extended form: {"$regex": pattern, "$options": options}.
//
// NOTE: This is NOT canonical. Use MarshalCanonical for hashing.
func MarshalJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSONIndent is MarshalJSON followed by json.Indent.
func MarshalJSONIndent(v Value, indent string) ([]byte, error) {
	data, err := MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value, canonical bool) error {
	switch v.typ {
	case NullType:
		buf.WriteString("null")
	case BoolType:
		buf.WriteString(strconv.FormatBool(v.b))
	case IntType:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case DoubleType:
		s, err := formatDouble(v.f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case StringType:
		return writeString(buf, v.s, canonical)
	case RegexType:
		fields := []Field{F("$regex", String(v.s)), F("$options", String(v.opts))}
		return writeObject(buf, fields, canonical)
	case ObjectType:
		return writeObject(buf, v.fields, canonical)
	case ArrayType:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e, canonical); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown value type: %s", v.typ)
	}
	return nil
}

func writeObject(buf *bytes.Buffer, fields []Field, canonical bool) error {
	if canonical {
		fields = sortedFields(fields)
	}
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, f.Name, canonical); err != nil {
			return fmt.Errorf("key %q: %w", f.Name, err)
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, f.Value, canonical); err != nil {
			return fmt.Errorf("value for key %q: %w", f.Name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string, canonical bool) error {
	if canonical {
		b, err := marshalCanonicalString(s)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// formatDouble keeps a decimal point on integral values so the number
// decodes back as a double.
func formatDouble(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("cannot encode %v as JSON", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return s, nil
}

// UnmarshalJSON is the inverse of MarshalJSON: objects holding exactly the
// string fields $regex and $options, in either order, decode as regexes.
func UnmarshalJSON(data []byte) (Value, error) {
	v, err := ParseJSON(data)
	if err != nil {
		return Value{}, err
	}
	return restoreRegex(v), nil
}

func restoreRegex(v Value) Value {
	switch v.typ {
	case ObjectType:
		if re, ok := asRegex(v); ok {
			return re
		}
		fields := make([]Field, len(v.fields))
		for i, f := range v.fields {
			fields[i] = Field{Name: f.Name, Value: restoreRegex(f.Value)}
		}
		return Object(fields...)
	case ArrayType:
		elems := make([]Value, len(v.elems))
		for i, e := range v.elems {
			elems[i] = restoreRegex(e)
		}
		return Array(elems...)
	}
	return v
}

func asRegex(v Value) (Value, bool) {
	if len(v.fields) != 2 {
		return Value{}, false
	}
	pattern, ok := v.Lookup("$regex")
	if !ok || pattern.typ != StringType {
		return Value{}, false
	}
	options, ok := v.Lookup("$options")
	if !ok || options.typ != StringType {
		return Value{}, false
	}
	return Regex(pattern.s, options.s), true
}
