package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/arraypull/internal/pull"
)

// UpdateError is returned by Pull and PullMany.
type UpdateError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Namespace and DocID identify the affected document.
	Namespace string
	DocID     string

	// Path is the dotted target path, when known.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes update errors.
type ErrorCode string

const (
	// ErrCodeParse indicates the path or condition could not be parsed.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeInvalidOperand indicates the target is not an array or the
	// request has no document.
	ErrCodeInvalidOperand ErrorCode = "INVALID_OPERAND"

	// ErrCodeInternal indicates a broken invariant, such as a failed log
	// append.
	ErrCodeInternal ErrorCode = "INTERNAL_CONSISTENCY"

	// ErrCodePathNotViable indicates the target path could never exist.
	ErrCodePathNotViable ErrorCode = "PATH_NOT_VIABLE"

	// ErrCodeImmutableField indicates the pull would modify a protected path.
	ErrCodeImmutableField ErrorCode = "IMMUTABLE_FIELD"

	// ErrCodeInvalidConfig indicates bad engine configuration or a bad
	// request collation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *UpdateError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.DocID != "" {
		return fmt.Sprintf("%s: %s (ns=%s, doc=%s)", e.Code, msg, e.Namespace, e.DocID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *UpdateError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsParseError returns true if the path or condition was rejected.
func IsParseError(err error) bool { return CodeOf(err) == ErrCodeParse }

// IsInvalidOperand returns true if the target was not an array.
func IsInvalidOperand(err error) bool { return CodeOf(err) == ErrCodeInvalidOperand }

// IsInternal returns true for internal-consistency failures.
func IsInternal(err error) bool { return CodeOf(err) == ErrCodeInternal }

// IsPathNotViable returns true if the target path could not be created.
func IsPathNotViable(err error) bool { return CodeOf(err) == ErrCodePathNotViable }

// IsImmutableField returns true if the pull touched a protected path.
func IsImmutableField(err error) bool { return CodeOf(err) == ErrCodeImmutableField }

// IsInvalidConfig returns true for configuration and collation errors.
func IsInvalidConfig(err error) bool { return CodeOf(err) == ErrCodeInvalidConfig }

// fromPull converts an operator error, keeping its code.
func fromPull(err error, ns, docID string) *UpdateError {
	var pe *pull.Error
	if !errors.As(err, &pe) {
		return &UpdateError{Code: ErrCodeInternal, Message: "pull failed", Namespace: ns, DocID: docID, Err: err}
	}
	return &UpdateError{
		Code:      ErrorCode(pe.Code),
		Message:   pe.Message,
		Namespace: ns,
		DocID:     docID,
		Path:      pe.Path,
		Err:       pe.Err,
	}
}
