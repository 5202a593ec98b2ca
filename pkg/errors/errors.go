// Package errors augments the standard errors with sentinel values that
// can be wrapped and annotated without losing their identity.
//
// A sentinel is declared once with New. Wrap and Detail return copies that
// still match the sentinel with errors.Is, so package level values are never
// mutated by callers.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel error
func New(msg string) *Error {
	e := &Error{msg: msg}
	e.origin = e
	return e
}

// Error is a sentinel error which may carry a detail message and a cause.
type Error struct {
	msg    string
	detail string
	err    error
	origin *Error
}

// Error message, followed by the detail and the cause when present
func (e *Error) Error() string {
	msg := e.msg
	if e.detail != "" {
		msg += ": " + e.detail
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.err = err
	return &c
}

// Detail annotates the error with a formatted message, e.g. a file name.
func (e *Error) Detail(format string, args ...interface{}) *Error {
	c := *e
	c.detail = fmt.Sprintf(format, args...)
	return &c
}

// Is this error derived from target?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e == t || e.origin == t.origin
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
