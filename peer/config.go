package peer

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for a peer.
type Config struct {
	// ListenAddress is the IP the listening and lookup sockets bind to. It is
	// also the address advertised to the index, so it must be reachable by
	// other peers.
	ListenAddress string
	// Port is the listening port, 0 selects an ephemeral port.
	Port uint16
	// RendezvousAddress is the index server's host:port.
	RendezvousAddress string

	RequestTimeout       time.Duration
	RegistrationAttempts int
	RegistrationBackoff  time.Duration
	DeliveryInterval     time.Duration

	// QueueCapacity bounds the inbound queue, 0 means unbounded.
	QueueCapacity int
	// CacheCapacity bounds the discovery cache, must be positive.
	CacheCapacity int

	Clock  clock.Clock
	Logger *logrus.Entry
}

// DefaultConfig returns a default configuration for a peer.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:        "127.0.0.1",
		Port:                 0,
		RendezvousAddress:    "127.0.0.1:50000",
		RequestTimeout:       2 * time.Second,
		RegistrationAttempts: 5,
		RegistrationBackoff:  500 * time.Millisecond,
		DeliveryInterval:     100 * time.Millisecond,
		QueueCapacity:        4096,
		CacheCapacity:        4096,
		Clock:                clock.New(),
		Logger:               logrus.WithField("component", "peer"),
	}
}

// listenHostPort returns the host:port of the listening socket.
func (c *Config) listenHostPort() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(int(c.Port)))
}

// lookupHostPort returns the host:port of the lookup socket.
func (c *Config) lookupHostPort() string {
	return net.JoinHostPort(c.ListenAddress, "0")
}

// Validate checks the configuration for values the peer cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.RendezvousAddress == "" {
		return errors.New("rendezvous address cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.RegistrationAttempts < 1 {
		return errors.New("registration attempts must be at least 1")
	}
	if c.RegistrationBackoff <= 0 {
		return errors.New("registration backoff must be positive")
	}
	if c.DeliveryInterval <= 0 {
		return errors.New("delivery interval must be positive")
	}
	if c.QueueCapacity < 0 {
		return errors.New("queue capacity cannot be negative")
	}
	if c.CacheCapacity <= 0 {
		return errors.New("cache capacity must be positive")
	}
	return nil
}
