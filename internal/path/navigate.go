package path

import (
	"errors"
	"fmt"

	"github.com/roach88/arraypull/internal/doc"
)

// CodePathNotViable identifies NotViableError.
const CodePathNotViable = "PathNotViable"

// Result records how far Navigate got.
type Result struct {
	// PathTaken is the prefix of the ref that exists in the document.
	PathTaken FieldRef
	// PathToCreate is the remainder that would have to be created.
	PathToCreate FieldRef
}

// Navigate resolves ref from root as far as the document allows. Objects
// are entered by field name, arrays by a strict numeric component. The
// returned element is the deepest one that exists; it is root itself when
// the first component does not resolve.
func Navigate(root doc.Element, ref FieldRef) (doc.Element, Result) {
	cur := root
	i := 0
	for ; i < ref.NumParts(); i++ {
		var next doc.Element
		switch cur.Type() {
		case doc.ObjectType:
			next = cur.FindFirstChildNamed(ref.Part(i))
		case doc.ArrayType:
			idx, ok := numericIndex(ref.Part(i))
			if !ok {
				return cur, split(ref, i)
			}
			next = cur.FindNthChild(idx)
		default:
			return cur, split(ref, i)
		}
		if !next.OK() {
			break
		}
		cur = next
	}
	return cur, split(ref, i)
}

func split(ref FieldRef, n int) Result {
	return Result{PathTaken: ref.Prefix(n), PathToCreate: ref.Suffix(n)}
}

// NotViableError reports that the missing part of a path cannot be
// created under an existing element.
type NotViableError struct {
	Part    string
	Path    string
	Element string
}

func (e *NotViableError) Error() string {
	return fmt.Sprintf("Cannot use the part (%s) of (%s) to traverse the element (%s)", e.Part, e.Path, e.Element)
}

// Code returns CodePathNotViable.
func (e *NotViableError) Code() string { return CodePathNotViable }

// IsNotViable reports whether err is, or wraps, a *NotViableError.
func IsNotViable(err error) bool {
	var nv *NotViableError
	return errors.As(err, &nv)
}

// CheckViability reports whether pathToCreate could be created under elem,
// the deepest existing element on the path. Creation needs elem to be an
// object, or an array when the next component is a strict numeric index.
func CheckViability(elem doc.Element, pathToCreate, pathTaken FieldRef) error {
	if pathToCreate.Empty() {
		return nil
	}
	switch elem.Type() {
	case doc.ObjectType:
		return nil
	case doc.ArrayType:
		if IsNumericStrict(pathToCreate.Part(0)) {
			return nil
		}
	}
	return &NotViableError{
		Part:    pathToCreate.Part(0),
		Path:    Concat(pathTaken, pathToCreate).Dotted(),
		Element: "{" + elementString(elem) + "}",
	}
}

func elementString(e doc.Element) string {
	return fmt.Sprintf("%s: %s", e.FieldName(), e.Value())
}
