package peer

import "github.com/opd-ai/peerindex/wire"

// Consumer receives messages from the delivery loop, one at a time and in
// arrival order.
type Consumer interface {
	Deliver(msg *wire.Message)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(msg *wire.Message)

// Deliver calls f(msg).
func (f ConsumerFunc) Deliver(msg *wire.Message) {
	f(msg)
}
