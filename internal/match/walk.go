package match

import (
	"strconv"

	"github.com/roach88/arraypull/internal/doc"
)

// walkPath calls visit for each value reachable from v along path. A
// component that names no field yields a missing leaf. Arrays met before
// the end of the path are entered through a numeric component or, for
// object elements, implicitly. visit returns false to stop the walk.
func walkPath(v doc.Value, path []string, visit func(v doc.Value, missing bool) bool) bool {
	if len(path) == 0 {
		return visit(v, false)
	}
	part, rest := path[0], path[1:]

	switch v.Type() {
	case doc.ObjectType:
		child, ok := v.Lookup(part)
		if !ok {
			return visit(doc.Value{}, true)
		}
		return walkPath(child, rest, visit)
	case doc.ArrayType:
		if idx, ok := arrayIndex(part); ok {
			if idx < v.Len() {
				if !walkPath(v.Elems()[idx], rest, visit) {
					return false
				}
			}
		}
		for _, e := range v.Elems() {
			if e.Type() != doc.ObjectType {
				continue
			}
			if !walkPath(e, path, visit) {
				return false
			}
		}
		return true
	}
	return visit(doc.Value{}, true)
}

func arrayIndex(part string) (int, bool) {
	if part == "" || (len(part) > 1 && part[0] == '0') {
		return 0, false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, false
	}
	return n, true
}
