package pull

import (
	"errors"
	"fmt"
)

// Error is returned by Init and Apply.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the dotted path of the target field, when known.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes pull errors.
type ErrorCode string

const (
	// ErrCodeParse indicates the condition could not be compiled.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeInvalidOperand indicates the target is not an array.
	ErrCodeInvalidOperand ErrorCode = "INVALID_OPERAND"

	// ErrCodeInternal indicates the log entry could not be built.
	ErrCodeInternal ErrorCode = "INTERNAL_CONSISTENCY"

	// ErrCodePathNotViable indicates the missing part of the path could
	// never be created.
	ErrCodePathNotViable ErrorCode = "PATH_NOT_VIABLE"

	// ErrCodeImmutableField indicates the pull would modify a protected path.
	ErrCodeImmutableField ErrorCode = "IMMUTABLE_FIELD"
)

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsParseError returns true if the condition failed to compile.
func IsParseError(err error) bool {
	return CodeOf(err) == ErrCodeParse
}

// IsInvalidOperand returns true if the target was not an array.
func IsInvalidOperand(err error) bool {
	return CodeOf(err) == ErrCodeInvalidOperand
}

// IsInternal returns true for internal-consistency failures.
func IsInternal(err error) bool {
	return CodeOf(err) == ErrCodeInternal
}

// IsPathNotViable returns true if the target path could not be created.
func IsPathNotViable(err error) bool {
	return CodeOf(err) == ErrCodePathNotViable
}

// IsImmutableField returns true if the pull touched a protected path.
func IsImmutableField(err error) bool {
	return CodeOf(err) == ErrCodeImmutableField
}
