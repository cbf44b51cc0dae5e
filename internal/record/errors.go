package record

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("video id not in store")
	ErrExplicitNoMirrors = errors.New("video explicitly has no mirrors")
	ErrMirrorsUnknown    = errors.New("mirrors not in store")
)

// Error wraps a sentinel error with additional context
type Error struct {
	Err     error  // The underlying sentinel error
	Context string // Additional error context
}

// Error satisfies the error interface
func (e *Error) Error() string {
	if e.Context == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Context)
}

// Unwrap implements the errors.Unwrap interface for compatibility with errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new record error with context
func NewError(err error, format string, args ...interface{}) *Error {
	return &Error{
		Err:     err,
		Context: fmt.Sprintf(format, args...),
	}
}
