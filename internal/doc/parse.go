package doc

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegexTag marks a YAML scalar as a regular expression literal,
// e.g. `!regex "/^a/i"`.
const RegexTag = "!regex"

// ParseYAML decodes a single YAML document into a Value. Mapping key order
// is preserved. Integers become IntType, floats DoubleType.
func ParseYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, fmt.Errorf("parse document: %w", err)
	}
	if root.Kind == 0 {
		return Value{}, fmt.Errorf("parse document: empty input")
	}
	return FromYAMLNode(&root)
}

// ParseJSON decodes JSON into a Value. JSON is parsed as YAML so that key
// order survives decoding.
func ParseJSON(data []byte) (Value, error) {
	return ParseYAML(data)
}

// FromYAMLNode converts a decoded yaml.Node tree into a Value.
func FromYAMLNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, fmt.Errorf("line %d: empty document", n.Line)
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		elems := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromYAMLNode(c)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return Array(elems...), nil
	case yaml.MappingNode:
		fields := make([]Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: object keys must be scalars", key.Line)
			}
			v, err := FromYAMLNode(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, F(key.Value, v))
		}
		return Object(fields...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	}
	return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func scalarFromYAML(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		// Out of int64 range; keep it as a double.
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Double(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Double(f), nil
	case RegexTag:
		return ParseRegexLiteral(n.Value)
	}
	return String(n.Value), nil
}

// ParseRegexLiteral parses "/pattern/options". A string without a leading
// slash is taken as a bare pattern with no options.
func ParseRegexLiteral(s string) (Value, error) {
	if !strings.HasPrefix(s, "/") {
		return Regex(s, ""), nil
	}
	end := strings.LastIndex(s, "/")
	if end == 0 {
		return Value{}, fmt.Errorf("regex literal %q is missing a closing slash", s)
	}
	return Regex(s[1:end], s[end+1:]), nil
}
