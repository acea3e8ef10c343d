package match

import (
	"errors"
	"fmt"
)

// ParseError is returned when a condition cannot be compiled. Op names the
// operator or field being parsed when one is known.
type ParseError struct {
	Op      string
	Message string
}

func (e *ParseError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func parseErrorf(op, format string, args ...any) *ParseError {
	return &ParseError{Op: op, Message: fmt.Sprintf(format, args...)}
}
