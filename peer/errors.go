package peer

import "errors"

// Errors reported by the peer pipeline
var (
	// ErrPeerNotFound indicates the index has no address for the identifier
	ErrPeerNotFound = errors.New("peer not found")

	// ErrRequestTimeout indicates the index did not answer in time
	ErrRequestTimeout = errors.New("rendezvous request timed out")

	// ErrRegistrationRejected indicates the index answered with an error status
	ErrRegistrationRejected = errors.New("registration rejected by index")

	// ErrRegistrationFailed indicates the peer could not obtain an identifier
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrNotRegistered indicates an operation needs an identifier first
	ErrNotRegistered = errors.New("peer is not registered")

	// ErrPipelineClosed indicates the pipeline loops are not running
	ErrPipelineClosed = errors.New("peer pipeline is not running")

	// ErrAlreadyRunning indicates Run was called on a running pipeline
	ErrAlreadyRunning = errors.New("peer pipeline already running")

	// ErrInvalidData indicates message data that is not valid UTF-8
	ErrInvalidData = errors.New("message data is not valid UTF-8")

	// ErrQueueFull indicates the inbound queue reached its capacity
	ErrQueueFull = errors.New("inbound queue is full")
)
