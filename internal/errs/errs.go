// Package errs defines the error taxonomy shared by the data-access layer.
//
// Every failure surfaced by the provider is an *Error carrying a Code. Each
// code maps to one sentinel so callers can branch with errors.Is without
// inspecting messages:
//
//	if errors.Is(err, errs.ErrInvalidInput) {
//	    // caller contract violation, nothing was written
//	}
//
// Store failures caused by a foreign key violation match both ErrStore and
// ErrReferential.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error category.
var (
	ErrUnknownResource = errors.New("unrecognized resource")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStore           = errors.New("store failure")
	ErrReferential     = errors.New("referential integrity violation")
)

// Code categorizes an Error.
type Code string

const (
	CodeUnknownResource Code = "UNKNOWN_RESOURCE"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeStore           Code = "STORE_FAILURE"
	CodeReferential     Code = "REFERENTIAL"
)

// Error is a categorized failure of a data-access operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op is the operation that failed ("insert", "query", "parse selection", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeUnknownResource:
		return target == ErrUnknownResource
	case CodeInvalidInput:
		return target == ErrInvalidInput
	case CodeStore:
		return target == ErrStore
	case CodeReferential:
		return target == ErrReferential || target == ErrStore
	}
	return false
}

// UnknownResource reports a locator that matches no known resource kind.
func UnknownResource(op, locator string) *Error {
	return &Error{Code: CodeUnknownResource, Op: op, Message: "unknown url " + locator}
}

// Invalid reports rejected caller input.
func Invalid(op, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Store wraps an underlying storage failure.
func Store(op, message string, err error) *Error {
	return &Error{Code: CodeStore, Op: op, Message: message, Err: err}
}

// Referential wraps a foreign key violation reported by the store.
func Referential(op, message string, err error) *Error {
	return &Error{Code: CodeReferential, Op: op, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
