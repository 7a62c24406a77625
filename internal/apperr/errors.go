// Package apperr defines the error taxonomy shared by the simulation core.
//
// Every error produced by the core wraps exactly one kind sentinel so callers
// can branch with errors.Is without caring which component raised it.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed action, payload or argument.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced post or entity that is absent in the session.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks a missing agent profile or decision procedure.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransientExternal marks a failed or timed-out decision call.
	ErrTransientExternal = errors.New("transient external error")
	// ErrStoreUnavailable marks loss of graph store connectivity. It is fatal
	// for the whole tick or event being processed.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// Error carries the kind sentinel, the failing operation and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error       { return newError(ErrValidation, op, err) }
func NotFound(op string, err error) error         { return newError(ErrNotFound, op, err) }
func Configuration(op string, err error) error    { return newError(ErrConfiguration, op, err) }
func Transient(op string, err error) error        { return newError(ErrTransientExternal, op, err) }
func StoreUnavailable(op string, err error) error { return newError(ErrStoreUnavailable, op, err) }

func Validationf(op, format string, args ...any) error {
	return Validation(op, fmt.Errorf(format, args...))
}

func NotFoundf(op, format string, args ...any) error {
	return NotFound(op, fmt.Errorf(format, args...))
}

func Configurationf(op, format string, args ...any) error {
	return Configuration(op, fmt.Errorf(format, args...))
}

// IsFatal reports whether err must abort the surrounding tick or event.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// KindOf returns the kind sentinel wrapped by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrStoreUnavailable, ErrValidation, ErrNotFound, ErrConfiguration, ErrTransientExternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
