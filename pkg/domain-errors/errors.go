// Package domainerrors provides coded errors shared by every layer.
//
// Stores and parsers return plain or sentinel errors; services and the
// standardization core translate them into a coded Error so callers can
// branch on the failure class without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// CodeMapping: a raw race string, Hispanic-origin string, or variable
	// code has no entry in the lookup table it must be resolved through.
	CodeMapping Code = "mapping_error"
	// CodeShape: an expected column is missing from a raw table, or a cell
	// cannot be read as the declared type.
	CodeShape Code = "shape_error"
	// CodePrecondition: an aggregation was asked to run on a relation that
	// does not satisfy its contract (missing denominator, duplicate label).
	CodePrecondition Code = "aggregation_precondition"

	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether err is a coded error (at any depth).
func Is(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
