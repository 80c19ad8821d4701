package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/peerindex/limits"
	"github.com/opd-ai/peerindex/wire"
	"github.com/sirupsen/logrus"
)

// readTimeout bounds each blocking read so that cancellation is observed promptly.
const readTimeout = 100 * time.Millisecond

// UDPTransport implements UDP-based communication for the rendezvous protocol.
// It satisfies the Transport interface.
type UDPTransport struct {
	conn       net.PacketConn
	listenAddr net.Addr
	handlers   map[wire.Kind]Handler
	mu         sync.RWMutex
	logger     *logrus.Entry

	closed    chan struct{}
	closeOnce sync.Once
}

// NewUDPTransport binds a UDP socket on listenAddr. Use port 0 for an
// ephemeral port. Bind failures are returned as *CreationError.
func NewUDPTransport(listenAddr string, logger *logrus.Entry) (*UDPTransport, error) {
	initMetrics()

	if logger == nil {
		logger = logrus.WithField("component", "transport")
	}

	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"function": "NewUDPTransport",
			"address":  listenAddr,
			"error":    err.Error(),
		}).Error("Failed to bind UDP socket")
		return nil, &CreationError{Addr: listenAddr, Err: err}
	}

	t := &UDPTransport{
		conn:       conn,
		listenAddr: conn.LocalAddr(), // Store the actual local address
		handlers:   make(map[wire.Kind]Handler),
		logger:     logger,
		closed:     make(chan struct{}),
	}

	logger.WithFields(logrus.Fields{
		"function": "NewUDPTransport",
		"address":  t.listenAddr.String(),
	}).Debug("UDP socket bound")

	return t, nil
}

// RegisterHandler registers a handler for a specific envelope kind.
func (t *UDPTransport) RegisterHandler(kind wire.Kind, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handlers[kind] = handler
}

// Send encodes env and sends it to addr. Envelopes larger than
// limits.MaxDatagramSize are rejected before anything is written.
func (t *UDPTransport) Send(env wire.Envelope, addr net.Addr) error {
	if addr == nil {
		return errors.New("send: nil destination address")
	}

	data, err := wire.Encode(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Kind(), err)
	}
	if err := limits.ValidateDatagram(data); err != nil {
		return fmt.Errorf("encode %s: %w", env.Kind(), err)
	}

	if _, err := t.conn.WriteTo(data, addr); err != nil {
		if t.isClosed() {
			err = ErrClosed
		}
		return newTransportError("send", addr.String(), err)
	}
	datagramsSent.Inc()

	return nil
}

// Listen runs the receive loop until ctx is done or the transport is closed.
// Datagrams are processed one at a time on the calling goroutine.
func (t *UDPTransport) Listen(ctx context.Context) error {
	if t.isClosed() {
		return ErrClosed
	}

	buffer := make([]byte, limits.ReadBufferSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.closed:
			return nil
		default:
			if err := t.processIncomingPacket(buffer); err != nil {
				return err
			}
		}
	}
}

// Close shuts down the transport.
func (t *UDPTransport) Close() error {
	err := ErrClosed
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}

// LocalAddr returns the local address the transport is listening on.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.listenAddr
}

func (t *UDPTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// processIncomingPacket reads and processes a single incoming datagram.
// Only a fatal socket error is returned.
func (t *UDPTransport) processIncomingPacket(buffer []byte) error {
	data, addr, err := t.readPacketData(buffer)
	if err != nil {
		return t.handleReadError(err)
	}
	datagramsReceived.Inc()

	if err := limits.ValidateDatagram(data); err != nil {
		t.drop(dropOversize, addr, err)
		return nil
	}

	env, err := wire.Decode(data)
	if err != nil {
		t.drop(dropDecode, addr, err)
		return nil
	}

	t.dispatchPacketToHandler(env, addr)
	return nil
}

// readPacketData reads data from the connection with timeout handling.
func (t *UDPTransport) readPacketData(buffer []byte) ([]byte, net.Addr, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))

	n, addr, err := t.conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, err
	}

	return buffer[:n], addr, nil
}

// handleReadError separates fatal socket errors from transient ones.
func (t *UDPTransport) handleReadError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// This is just a timeout, continue
		return nil
	}
	if errors.Is(err, net.ErrClosed) {
		if t.isClosed() {
			return nil
		}
		return newTransportError("read", "", err)
	}

	// ICMP errors such as "connection refused" surface on the next read of an
	// unconnected UDP socket; they concern an earlier send, not this loop.
	t.logger.WithFields(logrus.Fields{
		"function": "handleReadError",
		"error":    err.Error(),
	}).Debug("Transient read error")
	return nil
}

// dispatchPacketToHandler finds and executes the appropriate handler.
func (t *UDPTransport) dispatchPacketToHandler(env wire.Envelope, addr net.Addr) {
	t.mu.RLock()
	handler, exists := t.handlers[env.Kind()]
	t.mu.RUnlock()

	if !exists {
		t.drop(dropUnhandled, addr, fmt.Errorf("no handler for %s", env.Kind()))
		return
	}

	handler(env, addr)
}

func (t *UDPTransport) drop(reason string, addr net.Addr, err error) {
	datagramsDropped.WithLabelValues(reason).Inc()

	source := ""
	if addr != nil {
		source = addr.String()
	}
	t.logger.WithFields(logrus.Fields{
		"function": "processIncomingPacket",
		"source":   source,
		"reason":   reason,
		"error":    err.Error(),
	}).Debug("Dropped inbound datagram")
}
