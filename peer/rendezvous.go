package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/peerindex/transport"
	"github.com/opd-ai/peerindex/wire"
	"github.com/sirupsen/logrus"
)

// pendingRequest is a round trip waiting for its response.
type pendingRequest struct {
	kind     wire.Kind
	queried  uuid.UUID
	response chan wire.Envelope
}

// RendezvousClient talks to the index over its own socket. Requests carry a
// fresh req_id and responses are routed to the waiter with the same token.
type RendezvousClient struct {
	transport transport.Transport
	server    net.Addr
	timeout   time.Duration
	logger    *logrus.Entry

	mu      sync.Mutex
	pending map[string]*pendingRequest

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRendezvousClient creates a client that sends requests to server over tr.
// The response loop is not started; call Start or Run.
func NewRendezvousClient(tr transport.Transport, server net.Addr, timeout time.Duration, logger *logrus.Entry) *RendezvousClient {
	if logger == nil {
		logger = logrus.WithField("component", "rendezvous-client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &RendezvousClient{
		transport: tr,
		server:    server,
		timeout:   timeout,
		logger:    logger,
		pending:   make(map[string]*pendingRequest),
		ctx:       ctx,
		cancel:    cancel,
	}

	tr.RegisterHandler(wire.KindRegistrationResponse, c.handleResponse)
	tr.RegisterHandler(wire.KindLookupResponse, c.handleResponse)

	return c
}

// Start runs the response loop in the background until Close.
func (c *RendezvousClient) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Run(c.ctx); err != nil && !errors.Is(err, transport.ErrClosed) {
			c.logger.WithFields(logrus.Fields{
				"function": "Start",
				"error":    err.Error(),
			}).Error("Rendezvous response loop stopped")
		}
	}()
}

// Run reads responses from the lookup socket until ctx is done.
func (c *RendezvousClient) Run(ctx context.Context) error {
	return c.transport.Listen(ctx)
}

// Register asks the index for an identifier bound to replyAddr.
func (c *RendezvousClient) Register(ctx context.Context, replyAddr netip.AddrPort) (uuid.UUID, error) {
	req := &wire.Registration{ReplyAddr: replyAddr, RequestID: wire.NewRequestID()}

	env, err := c.roundTrip(ctx, req, req.RequestID, &pendingRequest{kind: wire.KindRegistrationResponse})
	if err != nil {
		return uuid.Nil, err
	}

	resp := env.(*wire.RegistrationResponse)
	if !resp.OK() {
		return uuid.Nil, fmt.Errorf("%w: status %q", ErrRegistrationRejected, resp.Status)
	}

	c.logger.WithFields(logrus.Fields{
		"function": "Register",
		"uuid":     resp.ID.String(),
		"addr":     replyAddr.String(),
	}).Debug("Registered with index")

	return resp.ID, nil
}

// Lookup asks the index for the address registered under id. It returns
// ErrPeerNotFound when the index has none.
func (c *RendezvousClient) Lookup(ctx context.Context, id uuid.UUID) (netip.AddrPort, error) {
	req := &wire.LookupRequest{Queried: id, RequestID: wire.NewRequestID()}

	env, err := c.roundTrip(ctx, req, req.RequestID, &pendingRequest{kind: wire.KindLookupResponse, queried: id})
	if err != nil {
		return netip.AddrPort{}, err
	}

	resp := env.(*wire.LookupResponse)
	if !resp.Found() {
		return netip.AddrPort{}, fmt.Errorf("%w: %s", ErrPeerNotFound, id)
	}
	return resp.Addr, nil
}

// Close stops the response loop and closes the lookup socket.
func (c *RendezvousClient) Close() error {
	c.cancel()
	err := c.transport.Close()
	c.wg.Wait()
	return err
}

func (c *RendezvousClient) roundTrip(ctx context.Context, req wire.Envelope, reqID string, p *pendingRequest) (wire.Envelope, error) {
	p.response = make(chan wire.Envelope, 1)

	c.mu.Lock()
	c.pending[reqID] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.transport.Send(req, c.server); err != nil {
		return nil, err
	}

	select {
	case resp := <-p.response:
		return resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s to %s", ErrRequestTimeout, req.Kind(), c.server)
		}
		return nil, ctx.Err()
	}
}

// handleResponse routes a control response to its pending request.
func (c *RendezvousClient) handleResponse(env wire.Envelope, from net.Addr) {
	logger := c.logger.WithFields(logrus.Fields{
		"function": "handleResponse",
		"from":     from.String(),
		"kind":     env.Kind().String(),
	})

	var reqID string
	var queried uuid.UUID
	switch resp := env.(type) {
	case *wire.RegistrationResponse:
		reqID = resp.RequestID
	case *wire.LookupResponse:
		reqID = resp.RequestID
		queried = resp.Queried
	}

	if reqID == "" {
		logger.Debug("Dropping response without req_id")
		return
	}

	c.mu.Lock()
	p, ok := c.pending[reqID]
	if ok && (p.kind != env.Kind() || p.queried != queried) {
		ok = false
	}
	if ok {
		delete(c.pending, reqID)
	}
	c.mu.Unlock()

	if !ok {
		logger.WithField("req_id", reqID).Debug("Dropping stray response")
		return
	}

	p.response <- env
}
