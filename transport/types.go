package transport

import (
	"context"
	"net"

	"github.com/opd-ai/peerindex/wire"
)

// Handler processes a decoded inbound envelope.
type Handler func(env wire.Envelope, from net.Addr)

// Transport defines the interface for the datagram transport used by the
// index server and the peers.
type Transport interface {
	// Send encodes env and sends it to addr as a single datagram.
	Send(env wire.Envelope, addr net.Addr) error

	// Listen runs the receive loop until ctx is done or the transport is closed.
	Listen(ctx context.Context) error

	// Close shuts down the transport.
	Close() error

	// LocalAddr returns the local address the transport is listening on.
	LocalAddr() net.Addr

	// RegisterHandler registers a handler for a specific envelope kind.
	RegisterHandler(kind wire.Kind, handler Handler)
}
