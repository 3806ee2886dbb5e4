package looper

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrAlreadyRunning is returned when Run is called on a loop that is
	// already running.
	ErrAlreadyRunning = errors.New("looper: loop is already running")
)

// ActionError is the fatal result returned by [Looper.Run] when an action's
// invocation fails. The loop makes no further progress after a misbehaving
// action; still-pending entries are lost.
type ActionError struct {
	Err    error
	Ticket Ticket
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("looper: action %d failed: %v", e.Ticket, e.Err)
}

// Unwrap returns the underlying error for use with [errors.Is] and
// [errors.As].
func (e *ActionError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by an action's invocation.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("looper: action panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
//
// If the panic Value is not an error (e.g. a string or other type),
// returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
