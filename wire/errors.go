package wire

import (
	"errors"
	"fmt"
)

// Decode error sentinels, matched by errors.Is against a *DecodeError.
var (
	// ErrMalformed indicates the payload is not a JSON object of string fields
	ErrMalformed = errors.New("malformed envelope")

	// ErrMissingField indicates a required field is absent
	ErrMissingField = errors.New("missing field")

	// ErrInvalidField indicates a field value failed type-specific parsing
	ErrInvalidField = errors.New("invalid field")

	// ErrUnknownEnvelope indicates the payload does not match any envelope kind
	ErrUnknownEnvelope = errors.New("unknown envelope kind")

	// ErrUnsupportedEnvelope is returned by Encode for types it cannot encode
	ErrUnsupportedEnvelope = errors.New("unsupported envelope type")
)

// DecodeErrorKind classifies a decode failure.
type DecodeErrorKind uint8

const (
	DecodeMalformed DecodeErrorKind = iota + 1
	DecodeMissingField
	DecodeInvalidField
	DecodeUnknownEnvelope
)

func (k DecodeErrorKind) sentinel() error {
	switch k {
	case DecodeMalformed:
		return ErrMalformed
	case DecodeMissingField:
		return ErrMissingField
	case DecodeInvalidField:
		return ErrInvalidField
	case DecodeUnknownEnvelope:
		return ErrUnknownEnvelope
	default:
		return nil
	}
}

// DecodeError describes why a datagram could not be decoded.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string // offending field, empty for malformed or unknown input
	Err   error  // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	msg := "decode error"
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		msg = "decode: " + sentinel.Error()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func malformed(err error) *DecodeError {
	return &DecodeError{Kind: DecodeMalformed, Err: err}
}

func missingField(name string) *DecodeError {
	return &DecodeError{Kind: DecodeMissingField, Field: name}
}

func invalidField(name string, err error) *DecodeError {
	return &DecodeError{Kind: DecodeInvalidField, Field: name, Err: err}
}

func unknownEnvelope(err error) *DecodeError {
	return &DecodeError{Kind: DecodeUnknownEnvelope, Err: err}
}
