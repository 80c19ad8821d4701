package server

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the well-known rendezvous port.
const DefaultPort uint16 = 50000

// DefaultCapacity bounds the registry when no capacity is configured.
const DefaultCapacity = 65536

// Config holds configuration for the rendezvous server.
type Config struct {
	// Address is the host or IP to bind.
	Address string
	// Port is the UDP port to bind, 0 selects an ephemeral port.
	Port uint16
	// Capacity is the maximum number of registry entries, 0 means unbounded.
	// When full, the least recently used entry is evicted.
	Capacity int
	// EntryTTL expires registry entries after the given duration, 0 disables expiry.
	EntryTTL time.Duration
	Logger   *logrus.Entry
}

// DefaultConfig returns a default configuration for the rendezvous server.
func DefaultConfig() *Config {
	return &Config{
		Address:  "127.0.0.1",
		Port:     DefaultPort,
		Capacity: DefaultCapacity,
		EntryTTL: 0,
		Logger:   logrus.WithField("component", "rendezvous"),
	}
}

// ListenAddress returns the host:port the server binds.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("server address cannot be empty")
	}
	if c.Capacity < 0 {
		return errors.New("registry capacity cannot be negative")
	}
	if c.EntryTTL < 0 {
		return errors.New("registry entry TTL cannot be negative")
	}
	return nil
}
