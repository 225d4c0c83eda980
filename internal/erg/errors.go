package erg

import (
	"errors"
	"fmt"
)

// FailureKind represents the specific kind of session-layer failure
type FailureKind string

const (
	// InvalidStateTransition means an operation was invoked outside the
	// state it is valid in. Non-fatal: the request is dropped and a
	// diagnostic is emitted, state is left unchanged.
	InvalidStateTransition FailureKind = "invalid_state_transition"

	// UnknownDevice means a request was routed to an identifier that was
	// never discovered.
	UnknownDevice FailureKind = "unknown_device"

	// TransportFailure means the underlying BLE stack reported an error.
	TransportFailure FailureKind = "transport_failure"
)

// Error represents any session or manager level failure
type Error struct {
	Kind FailureKind
	Msg  string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors for failure kinds
var (
	ErrInvalidStateTransition = &Error{Kind: InvalidStateTransition}
	ErrUnknownDevice          = &Error{Kind: UnknownDevice}
	ErrTransportFailure       = &Error{Kind: TransportFailure}
)

// IsFailureKind reports whether err is an Error with the given kind
func IsFailureKind(err error, kind FailureKind) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind == kind
	}
	return false
}

func invalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidStateTransition, Msg: fmt.Sprintf(format, args...)}
}
