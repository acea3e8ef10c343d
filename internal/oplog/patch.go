package oplog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/roach88/arraypull/internal/doc"
)

// Patch renders entries as an RFC 6902 patch of "replace" operations in
// entry order.
func Patch(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if e.Op != OpSet {
			return nil, fmt.Errorf("entry %s: unsupported op %q", e.ID, e.Op)
		}
		value, err := doc.MarshalJSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		pointer, err := json.Marshal(Pointer(e.Path))
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"op":"replace","path":`)
		buf.Write(pointer)
		buf.WriteString(`,"value":`)
		buf.Write(value)
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Pointer converts a dotted field path to a JSON Pointer.
func Pointer(dotted string) string {
	if dotted == "" {
		return ""
	}
	r := strings.NewReplacer("~", "~0", "/", "~1")
	parts := strings.Split(dotted, ".")
	for i, p := range parts {
		parts[i] = r.Replace(p)
	}
	return "/" + strings.Join(parts, "/")
}

// Replay applies entries to a JSON document and returns the patched
// document. Object fields keep the order they have in docJSON.
func Replay(docJSON []byte, entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return docJSON, nil
	}
	raw, err := Patch(entries)
	if err != nil {
		return nil, err
	}
	p, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	out, err := p.Apply(docJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}

	// json-patch re-encodes every object on a patched path from a map,
	// which sorts its keys.
	orig, err := doc.UnmarshalJSON(docJSON)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	patched, err := doc.UnmarshalJSON(out)
	if err != nil {
		return nil, fmt.Errorf("decode patched document: %w", err)
	}
	ancestors := make(map[string]bool)
	for _, e := range entries {
		parts := strings.Split(e.Path, ".")
		for i := 1; i < len(parts); i++ {
			ancestors[strings.Join(parts[:i], ".")] = true
		}
	}
	return doc.MarshalJSON(restoreOrder(patched, orig, "", ancestors))
}

// restoreOrder puts the fields of patched back in the order of like. It
// descends only into ancestors of patched paths; every other value is
// copied through by json-patch untouched.
func restoreOrder(patched, like doc.Value, prefix string, ancestors map[string]bool) doc.Value {
	child := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	switch {
	case patched.Type() == doc.ObjectType && like.Type() == doc.ObjectType:
		fields := make([]doc.Field, 0, patched.Len())
		placed := make(map[string]bool, patched.Len())
		for _, f := range like.Fields() {
			v, ok := patched.Lookup(f.Name)
			if !ok || placed[f.Name] {
				continue
			}
			if ancestors[child(f.Name)] {
				v = restoreOrder(v, f.Value, child(f.Name), ancestors)
			}
			fields = append(fields, doc.F(f.Name, v))
			placed[f.Name] = true
		}
		for _, f := range patched.Fields() {
			if !placed[f.Name] {
				fields = append(fields, f)
				placed[f.Name] = true
			}
		}
		return doc.Object(fields...)

	case patched.Type() == doc.ArrayType && like.Type() == doc.ArrayType:
		elems := patched.Elems()
		out := make([]doc.Value, len(elems))
		for i, e := range elems {
			name := child(strconv.Itoa(i))
			if i < like.Len() && ancestors[name] {
				e = restoreOrder(e, like.Elems()[i], name, ancestors)
			}
			out[i] = e
		}
		return doc.Array(out...)
	}
	return patched
}
