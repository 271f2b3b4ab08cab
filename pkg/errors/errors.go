// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with Wrap() and WrapMessage() methods to decorate sentinel
// errors without resorting to fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	e := &Error{msg: msg}
	e.origin = e
	return e
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
//
// Wrapping never alters the receiver: sentinel errors may be safely wrapped
// from concurrent goroutines, and the result still matches the sentinel
// with Is.
type Error struct {
	msg    string
	detail string
	err    error
	origin *Error
}

// Error message
func (e *Error) Error() string {
	switch {
	case e.detail != "" && e.err != nil:
		return e.msg + ": " + e.detail + ": " + e.err.Error()
	case e.detail != "":
		return e.msg + ": " + e.detail
	case e.err != nil:
		return e.msg + ": " + e.err.Error()
	default:
		return e.msg
	}
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

// WrapMessage adds some formatted detail to the error message
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	c := *e
	c.detail = fmt.Sprintf(format, args...)
	return &c
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || e.origin == t || e.origin == t.origin
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
