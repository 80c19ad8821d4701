package server

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxMintAttempts bounds the retries on an identifier collision.
const maxMintAttempts = 4

var (
	// ErrInvalidAddress indicates a registration without a usable address
	ErrInvalidAddress = errors.New("invalid peer address")

	// ErrIdentifierExhausted indicates no unused identifier could be minted
	ErrIdentifierExhausted = errors.New("could not mint a unique identifier")
)

// Registry maps peer identifiers to their network addresses.
//
// Writers are serialised by mu so that minting and inserting an identifier is
// atomic; readers only take the cache's internal lock.
type Registry struct {
	mu      sync.Mutex
	entries *expirable.LRU[uuid.UUID, netip.AddrPort]
	newID   func() (uuid.UUID, error)
}

// NewRegistry creates a registry holding at most capacity entries (0 means
// unbounded) whose entries expire after ttl (0 means never).
func NewRegistry(capacity int, ttl time.Duration) *Registry {
	onEvict := func(uuid.UUID, netip.AddrPort) {
		registryEntries.Dec()
	}
	return &Registry{
		entries: expirable.NewLRU[uuid.UUID, netip.AddrPort](capacity, onEvict, ttl),
		newID:   uuid.NewRandom,
	}
}

// Register mints a fresh identifier for addr and records the entry.
func (r *Registry) Register(addr netip.AddrPort) (uuid.UUID, error) {
	if !addr.IsValid() {
		return uuid.Nil, ErrInvalidAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxMintAttempts; i++ {
		id, err := r.newID()
		if err != nil {
			return uuid.Nil, fmt.Errorf("mint identifier: %w", err)
		}
		if id == uuid.Nil || r.entries.Contains(id) {
			continue
		}
		r.entries.Add(id, addr)
		registryEntries.Inc()
		return id, nil
	}

	return uuid.Nil, ErrIdentifierExhausted
}

// Lookup returns the address registered under id.
func (r *Registry) Lookup(id uuid.UUID) (netip.AddrPort, bool) {
	if id == uuid.Nil {
		return netip.AddrPort{}, false
	}
	return r.entries.Get(id)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return r.entries.Len()
}
