package transport

import (
	"errors"
	"fmt"
)

// ErrClosed indicates the transport has been closed
var ErrClosed = errors.New("transport closed")

// CreationError reports a failure to bind a transport endpoint.
type CreationError struct {
	Addr string // requested listen address
	Err  error  // underlying error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// TransportError represents a send or receive failure with additional context
type TransportError struct {
	Op   string // operation that caused the error
	Addr string // remote address if relevant
	Err  error  // underlying error
}

func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(op, addr string, err error) *TransportError {
	return &TransportError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
