// Package metrics serves the Prometheus collectors registered by the other
// packages over HTTP.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the default Prometheus registry on /metrics.
type Server struct {
	ln     net.Listener
	s      *http.Server
	logger *logrus.Entry
}

// Listen binds the metrics endpoint on addr.
func Listen(addr string, logger *logrus.Entry) (*Server, error) {
	if logger == nil {
		logger = logrus.WithField("component", "metrics")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		ln:     ln,
		s:      &http.Server{Handler: mux, ReadTimeout: 5 * time.Second},
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve handles scrapes until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.s.Serve(s.ln)
	}()

	s.logger.WithFields(logrus.Fields{
		"function": "Serve",
		"address":  s.ln.Addr().String(),
	}).Info("Metrics endpoint started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
