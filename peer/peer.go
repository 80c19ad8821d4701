package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/opd-ai/peerindex/transport"
	"github.com/opd-ai/peerindex/wire"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// sendRequest is a Send call handed to the send loop.
type sendRequest struct {
	ctx    context.Context
	dst    uuid.UUID
	data   string
	result chan error
}

// Peer is a registered participant that exchanges messages with other peers
// directly after resolving their addresses through the index.
type Peer struct {
	config     *Config
	listener   transport.Transport
	rendezvous *RendezvousClient
	cache      *DiscoveryCache
	queue      *InboundQueue
	consumer   Consumer
	clock      clock.Clock
	logger     *logrus.Entry

	sendCh chan *sendRequest

	mu      sync.RWMutex
	id      uuid.UUID
	stopped chan struct{}
}

// New binds the listening and lookup sockets of a peer. Bind failures are
// returned as *transport.CreationError.
func New(config *Config, consumer Consumer) (*Peer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid peer config: %w", err)
	}
	if consumer == nil {
		return nil, errors.New("consumer cannot be nil")
	}
	initMetrics()

	logger := config.Logger
	if logger == nil {
		logger = logrus.WithField("component", "peer")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}

	server, err := net.ResolveUDPAddr("udp", config.RendezvousAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve rendezvous address %q: %w", config.RendezvousAddress, err)
	}

	listener, err := transport.NewUDPTransport(config.listenHostPort(), logger.WithField("socket", "listen"))
	if err != nil {
		return nil, err
	}
	lookup, err := transport.NewUDPTransport(config.lookupHostPort(), logger.WithField("socket", "lookup"))
	if err != nil {
		listener.Close()
		return nil, err
	}

	rendezvous := NewRendezvousClient(lookup, server, config.RequestTimeout, logger.WithField("socket", "lookup"))
	cache, err := NewDiscoveryCache(rendezvous, config.CacheCapacity, config.RequestTimeout, logger)
	if err != nil {
		multierr.AppendInto(&err, lookup.Close())
		multierr.AppendInto(&err, listener.Close())
		return nil, err
	}

	p := &Peer{
		config:     config,
		listener:   listener,
		rendezvous: rendezvous,
		cache:      cache,
		queue:      NewInboundQueue(config.QueueCapacity),
		consumer:   consumer,
		clock:      clk,
		logger:     logger,
		sendCh:     make(chan *sendRequest),
	}

	listener.RegisterHandler(wire.KindMessage, p.handleMessage)
	rendezvous.Start()

	logger.WithFields(logrus.Fields{
		"function":   "New",
		"listen":     listener.LocalAddr().String(),
		"lookup":     lookup.LocalAddr().String(),
		"rendezvous": server.String(),
	}).Info("Peer created")

	return p, nil
}

// Register obtains an identifier from the index for the listening address,
// retrying with exponential backoff. Exhausting the attempts yields an error
// wrapping ErrRegistrationFailed.
func (p *Peer) Register(ctx context.Context) error {
	logger := p.logger.WithField("function", "Register")

	replyAddr, err := wire.AddrPortFromNet(p.listener.LocalAddr())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RegistrationBackoff
	b.MaxInterval = 10 * p.config.RegistrationBackoff
	b.MaxElapsedTime = 0
	b.Clock = p.clock
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.config.RegistrationAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		id, err := p.rendezvous.Register(ctx, replyAddr)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Registration attempt failed")
			return err
		}

		p.mu.Lock()
		p.id = id
		p.mu.Unlock()
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		logger.WithFields(logrus.Fields{
			"attempts": attempt,
			"error":    err.Error(),
		}).Error("Registration failed")
		return fmt.Errorf("%w after %d attempt(s): %w", ErrRegistrationFailed, attempt, err)
	}

	logger.WithFields(logrus.Fields{
		"uuid":     p.ID().String(),
		"addr":     replyAddr.String(),
		"attempts": attempt,
	}).Info("Registered with index")

	return nil
}

// Run registers if needed and then runs the receive, send and delivery loops
// until ctx is done. A registration failure returns before any loop starts.
func (p *Peer) Run(ctx context.Context) error {
	if p.ID() == uuid.Nil {
		if err := p.Register(ctx); err != nil {
			return err
		}
	}

	stopped := make(chan struct{})
	p.mu.Lock()
	if p.stopped != nil {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.stopped = stopped
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.stopped = nil
		p.mu.Unlock()
		close(stopped)
	}()

	p.logger.WithFields(logrus.Fields{
		"function": "Run",
		"uuid":     p.ID().String(),
	}).Info("Peer pipeline started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing the listening socket ends the pipeline.
		defer cancel()
		return p.listener.Listen(gctx)
	})
	g.Go(func() error { return p.sendLoop(gctx) })
	g.Go(func() error { return p.deliveryLoop(gctx) })

	err := g.Wait()

	p.logger.WithField("function", "Run").Info("Peer pipeline stopped")
	return err
}

// Send resolves dst and sends it a message envelope carrying data, which
// must be valid UTF-8. If ctx is done before the message is written, nothing
// is sent and ctx.Err() is returned.
func (p *Peer) Send(ctx context.Context, dst uuid.UUID, data string) error {
	if p.ID() == uuid.Nil {
		return ErrNotRegistered
	}

	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped == nil {
		return ErrPipelineClosed
	}

	if !utf8.ValidString(data) {
		return ErrInvalidData
	}

	req := &sendRequest{ctx: ctx, dst: dst, data: data, result: make(chan error, 1)}
	select {
	case p.sendCh <- req:
	case <-stopped:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// The request runs under ctx, so its result arrives promptly once ctx is
	// done and always reports what happened on the wire.
	return <-req.result
}

// ID returns the identifier assigned by the index, uuid.Nil before
// registration.
func (p *Peer) ID() uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// LocalAddr returns the address of the listening socket.
func (p *Peer) LocalAddr() net.Addr {
	return p.listener.LocalAddr()
}

// Cache returns the discovery cache.
func (p *Peer) Cache() *DiscoveryCache {
	return p.cache
}

// Queue returns the inbound queue.
func (p *Peer) Queue() *InboundQueue {
	return p.queue
}

// IsRunning reports whether the pipeline loops are running.
func (p *Peer) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped != nil
}

// Close releases both sockets, which also stops a running pipeline.
func (p *Peer) Close() error {
	var err error
	multierr.AppendInto(&err, p.rendezvous.Close())
	multierr.AppendInto(&err, p.listener.Close())
	return err
}

// handleMessage is the receive loop's handler for message envelopes.
func (p *Peer) handleMessage(env wire.Envelope, from net.Addr) {
	msg := env.(*wire.Message)
	if err := p.queue.Push(msg); err != nil {
		queueDropped.Inc()
		p.logger.WithFields(logrus.Fields{
			"function": "handleMessage",
			"from":     from.String(),
			"src":      msg.Src.String(),
			"error":    err.Error(),
		}).Warn("Dropping inbound message")
		return
	}
	messagesReceived.Inc()
}

// sendLoop runs each request on its own goroutine so that a slow resolution
// never holds up sends to other destinations.
func (p *Peer) sendLoop(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-p.sendCh:
			wg.Add(1)
			go func() {
				defer wg.Done()

				reqCtx, cancel := context.WithCancel(req.ctx)
				defer cancel()
				stop := context.AfterFunc(ctx, cancel)
				defer stop()

				req.result <- p.send(reqCtx, req.dst, req.data)
			}()
		}
	}
}

func (p *Peer) send(ctx context.Context, dst uuid.UUID, data string) error {
	logger := p.logger.WithFields(logrus.Fields{
		"function": "send",
		"dst":      dst.String(),
	})

	addr, err := p.cache.Resolve(ctx, dst)
	if err != nil {
		sendFailures.WithLabelValues(resolveFailureReason(err)).Inc()
		logger.WithField("error", err.Error()).Warn("Failed to resolve destination")
		return err
	}

	// A caller that gave up must not have its message sent behind its back.
	if err := ctx.Err(); err != nil {
		sendFailures.WithLabelValues(failureCancelled).Inc()
		logger.WithField("error", err.Error()).Debug("Send abandoned after resolution")
		return err
	}

	msg := &wire.Message{
		Src:          p.ID(),
		Dst:          dst,
		Data:         data,
		CreationTime: p.clock.Now(),
	}
	if err := p.listener.Send(msg, wire.NetAddr(addr)); err != nil {
		sendFailures.WithLabelValues(failureTransport).Inc()
		logger.WithFields(logrus.Fields{
			"addr":  addr.String(),
			"error": err.Error(),
		}).Warn("Failed to send message")
		return err
	}

	messagesSent.Inc()
	logger.WithField("addr", addr.String()).Debug("Message sent")
	return nil
}

func (p *Peer) deliveryLoop(ctx context.Context) error {
	ticker := p.clock.Ticker(p.config.DeliveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.deliverPending()
			return nil
		case <-ticker.C:
			p.deliverPending()
		case <-p.queue.Notify():
			p.deliverPending()
		}
	}
}

// deliverPending hands every queued message to the consumer in arrival order.
func (p *Peer) deliverPending() {
	for _, msg := range p.queue.Drain() {
		p.consumer.Deliver(msg)
		messagesDelivered.Inc()
	}
}

func resolveFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrPeerNotFound):
		return failureNotFound
	case errors.Is(err, ErrRequestTimeout):
		return failureTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failureCancelled
	default:
		return failureResolve
	}
}
