package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/peerindex/transport"
	"github.com/opd-ai/peerindex/wire"
	"github.com/sirupsen/logrus"
)

// Server is the rendezvous index. It owns the registry exclusively.
type Server struct {
	transport transport.Transport
	registry  *Registry
	logger    *logrus.Entry

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// New binds the server's UDP endpoint and prepares the registry. A bind
// failure is returned as *transport.CreationError.
func New(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if config.Logger == nil {
		config.Logger = logrus.WithField("component", "rendezvous")
	}

	tr, err := transport.NewUDPTransport(config.ListenAddress(), config.Logger)
	if err != nil {
		return nil, err
	}

	return newServer(config, tr), nil
}

func newServer(config *Config, tr transport.Transport) *Server {
	initMetrics()

	s := &Server{
		transport: tr,
		registry:  NewRegistry(config.Capacity, config.EntryTTL),
		logger:    config.Logger,
	}
	tr.RegisterHandler(wire.KindRegistration, s.handleRegistration)
	tr.RegisterHandler(wire.KindLookupRequest, s.handleLookup)

	return s
}

// Serve processes datagrams one at a time until ctx is cancelled or the
// server is closed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rendezvous server already running")
	}
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"function": "Serve",
		"address":  s.transport.LocalAddr().String(),
	}).Info("Rendezvous server listening")

	err := s.transport.Listen(ctx)

	s.mu.Lock()
	s.running = false
	uptime := time.Since(s.startTime)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"function": "Serve",
		"uptime":   uptime,
		"peers":    s.registry.Len(),
	}).Info("Rendezvous server stopped")

	return err
}

// Close shuts down the server's socket.
func (s *Server) Close() error {
	return s.transport.Close()
}

// LocalAddr returns the address the server is bound to.
func (s *Server) LocalAddr() net.Addr {
	return s.transport.LocalAddr()
}

// Registry returns the server's registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// IsRunning returns whether Serve is currently active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// handleRegistration mints an identifier for the address carried in the
// request. The stored address is the one the peer asked for, not the
// datagram's source address.
func (s *Server) handleRegistration(env wire.Envelope, from net.Addr) {
	req, ok := env.(*wire.Registration)
	if !ok {
		return
	}
	serverRequests.WithLabelValues(wire.KindRegistration.String()).Inc()

	resp := &wire.RegistrationResponse{Status: wire.StatusOK, RequestID: req.RequestID}
	id, err := s.registry.Register(req.ReplyAddr)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"function": "handleRegistration",
			"source":   from.String(),
			"error":    err.Error(),
		}).Warn("Registration rejected")
		resp.Status = wire.StatusError
	} else {
		resp.ID = id
		s.logger.WithFields(logrus.Fields{
			"function": "handleRegistration",
			"source":   from.String(),
			"uuid":     id.String(),
			"address":  req.ReplyAddr.String(),
		}).Info("Peer registered")
	}

	s.respond(resp, from)
}

// handleLookup answers with the registered address or the "nil" sentinel.
func (s *Server) handleLookup(env wire.Envelope, from net.Addr) {
	req, ok := env.(*wire.LookupRequest)
	if !ok {
		return
	}
	serverRequests.WithLabelValues(wire.KindLookupRequest.String()).Inc()

	resp := &wire.LookupResponse{Queried: req.Queried, RequestID: req.RequestID}
	if addr, found := s.registry.Lookup(req.Queried); found {
		resp.Addr = addr
	}

	s.logger.WithFields(logrus.Fields{
		"function": "handleLookup",
		"source":   from.String(),
		"uuid":     req.Queried.String(),
		"found":    resp.Found(),
	}).Debug("Lookup handled")

	s.respond(resp, from)
}

func (s *Server) respond(resp wire.Envelope, to net.Addr) {
	if err := s.transport.Send(resp, to); err != nil {
		serverSendFailures.Inc()
		s.logger.WithFields(logrus.Fields{
			"function":    "respond",
			"destination": to.String(),
			"kind":        resp.Kind().String(),
			"error":       err.Error(),
		}).Warn("Failed to send response")
	}
}
