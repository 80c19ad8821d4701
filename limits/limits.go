package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxDatagramSize is the largest payload a single protocol datagram may carry.
	MaxDatagramSize = 1024

	// ReadBufferSize is the receive buffer size. One byte over MaxDatagramSize
	// so that oversized datagrams can be told apart from ones that fit exactly.
	ReadBufferSize = MaxDatagramSize + 1
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateDatagram validates an encoded envelope against MaxDatagramSize.
// Used for all outbound payloads and all untrusted inbound reads.
func ValidateDatagram(payload []byte) error {
	if len(payload) == 0 {
		return ErrMessageEmpty
	}
	if len(payload) > MaxDatagramSize {
		return fmt.Errorf("%w: datagram size %d exceeds limit %d", ErrMessageTooLarge, len(payload), MaxDatagramSize)
	}
	return nil
}
