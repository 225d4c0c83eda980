package telemetry

import (
	"errors"
	"fmt"
)

// DecodeErrorKind represents the specific kind of payload decode failure
type DecodeErrorKind string

const (
	TruncatedPayload DecodeErrorKind = "truncated_payload"
	UnknownEnumValue DecodeErrorKind = "unknown_enum_value"
	InvalidEncoding  DecodeErrorKind = "invalid_encoding"
)

// DecodeError represents any telemetry payload decode problem.
// Decode errors are non-fatal: the affected record is dropped and the
// session keeps streaming.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string // field being decoded when the failure occurred, if known
	Code  int    // offending enumeration code (UnknownEnumValue only)
	Msg   string
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case UnknownEnumValue:
		return fmt.Sprintf("%s: code %d is not a valid %s", e.Kind, e.Code, e.Field)
	case TruncatedPayload:
		if e.Msg != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
		}
		return string(e.Kind)
	default:
		if e.Msg == "" {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// Is allows errors.Is to compare DecodeError values by Kind
func (e *DecodeError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors for decode failure kinds
var (
	ErrTruncatedPayload = &DecodeError{Kind: TruncatedPayload}
	ErrUnknownEnumValue = &DecodeError{Kind: UnknownEnumValue}
	ErrInvalidEncoding  = &DecodeError{Kind: InvalidEncoding}
)

// IsDecodeKind reports whether err is a DecodeError with the given kind
func IsDecodeKind(err error, kind DecodeErrorKind) bool {
	var derr *DecodeError
	if errors.As(err, &derr) {
		return derr.Kind == kind
	}
	return false
}

func truncated(payload string, need, got int) *DecodeError {
	return &DecodeError{
		Kind: TruncatedPayload,
		Msg:  fmt.Sprintf("%s payload requires %d bytes, got %d", payload, need, got),
	}
}

func unknownEnum(field string, code byte) *DecodeError {
	return &DecodeError{Kind: UnknownEnumValue, Field: field, Code: int(code)}
}
