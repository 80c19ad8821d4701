package peer

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Resolver answers address lookups, typically by asking the index.
type Resolver interface {
	Lookup(ctx context.Context, id uuid.UUID) (netip.AddrPort, error)
}

// DiscoveryCache remembers the addresses of peers resolved through the index.
// Entries are never refreshed; the least recently used one is evicted when
// the cache is full.
type DiscoveryCache struct {
	resolver Resolver
	entries  *lru.Cache[uuid.UUID, netip.AddrPort]
	inflight singleflight.Group
	timeout  time.Duration
	logger   *logrus.Entry
}

// NewDiscoveryCache creates a cache holding at most capacity addresses. A
// lookup shared by concurrent callers runs for at most timeout.
func NewDiscoveryCache(resolver Resolver, capacity int, timeout time.Duration, logger *logrus.Entry) (*DiscoveryCache, error) {
	initMetrics()

	if timeout <= 0 {
		return nil, errors.New("discovery cache: lookup timeout must be positive")
	}
	entries, err := lru.New[uuid.UUID, netip.AddrPort](capacity)
	if err != nil {
		return nil, fmt.Errorf("discovery cache: %w", err)
	}
	if logger == nil {
		logger = logrus.WithField("component", "discovery-cache")
	}
	return &DiscoveryCache{
		resolver: resolver,
		entries:  entries,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Resolve returns the address of id, asking the resolver only on a miss.
// Concurrent misses for the same id share one lookup. A failed lookup leaves
// the cache unchanged.
func (c *DiscoveryCache) Resolve(ctx context.Context, id uuid.UUID) (netip.AddrPort, error) {
	if id == uuid.Nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %s", ErrPeerNotFound, id)
	}

	if addr, ok := c.entries.Get(id); ok {
		cacheHits.Inc()
		return addr, nil
	}
	cacheMisses.Inc()

	// The shared lookup is never cancelled by a single caller; each caller
	// stops waiting on its own ctx instead.
	ch := c.inflight.DoChan(id.String(), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		addr, err := c.resolver.Lookup(lookupCtx, id)
		if err != nil {
			return netip.AddrPort{}, err
		}
		c.entries.Add(id, addr)
		return addr, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return netip.AddrPort{}, ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"function": "Resolve",
			"uuid":     id.String(),
			"error":    err.Error(),
		}).Debug("Resolution failed")
		return netip.AddrPort{}, err
	}

	addr := v.(netip.AddrPort)
	c.logger.WithFields(logrus.Fields{
		"function": "Resolve",
		"uuid":     id.String(),
		"addr":     addr.String(),
		"shared":   shared,
	}).Debug("Resolved peer address")

	return addr, nil
}

// Cached returns the cached address of id without resolving it.
func (c *DiscoveryCache) Cached(id uuid.UUID) (netip.AddrPort, bool) {
	return c.entries.Peek(id)
}

// Len returns the number of cached addresses.
func (c *DiscoveryCache) Len() int {
	return c.entries.Len()
}
