// Package transport provides the UDP transport shared by the index server and
// the peers.
//
// # Architecture
//
// A UDPTransport wraps one bound net.PacketConn. Outbound envelopes are
// encoded with package wire, validated against limits.MaxDatagramSize and
// written as a single datagram. Inbound datagrams are read by Listen, decoded
// and dispatched to the handler registered for the envelope's kind:
//
//	t, err := transport.NewUDPTransport("127.0.0.1:50000", nil)
//	if err != nil {
//	    return err // *transport.CreationError
//	}
//	t.RegisterHandler(wire.KindLookupRequest, func(env wire.Envelope, from net.Addr) {
//	    // handle the request
//	})
//	go t.Listen(ctx)
//
// Listen runs on the caller's goroutine and processes one datagram at a time,
// so handlers registered on a transport never run concurrently with each
// other. Handlers should return quickly.
//
// # Error Handling
//
// Bad input never stops the receive loop: datagrams that are oversized, fail
// to decode or have no registered handler are dropped and counted. Socket
// errors are reported as *TransportError; bind failures as *CreationError.
//
// The interfaces use net.Addr and net.PacketConn throughout rather than
// concrete address types.
package transport
