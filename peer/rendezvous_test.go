package peer

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/peerindex/transport"
	"github.com/opd-ai/peerindex/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex is a scripted index: reply decides what, if anything, is written
// back for each request.
type fakeIndex struct {
	conn net.PacketConn
}

func newFakeIndex(t *testing.T, reply func(req wire.Envelope) []wire.Envelope) *fakeIndex {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			req, err := wire.Decode(buf[:n])
			if err != nil {
				continue
			}
			for _, env := range reply(req) {
				data, err := wire.Encode(env)
				if err != nil {
					continue
				}
				_, _ = conn.WriteTo(data, from)
			}
		}
	}()

	t.Cleanup(func() { _ = conn.Close() })
	return &fakeIndex{conn: conn}
}

func newTestRendezvousClient(t *testing.T, index net.Addr, timeout time.Duration) *RendezvousClient {
	t.Helper()
	tr, err := transport.NewUDPTransport("127.0.0.1:0", nil)
	require.NoError(t, err)

	c := NewRendezvousClient(tr, index, timeout, nil)
	c.Start()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRendezvousClientRegister(t *testing.T) {
	assigned := uuid.New()
	index := newFakeIndex(t, func(req wire.Envelope) []wire.Envelope {
		reg, ok := req.(*wire.Registration)
		if !ok {
			return nil
		}
		return []wire.Envelope{&wire.RegistrationResponse{
			Status:    wire.StatusOK,
			ID:        assigned,
			RequestID: reg.RequestID,
		}}
	})
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), time.Second)

	id, err := c.Register(context.Background(), netip.MustParseAddrPort("127.0.0.1:6000"))
	require.NoError(t, err)
	assert.Equal(t, assigned, id)
}

func TestRendezvousClientRegisterRejected(t *testing.T) {
	index := newFakeIndex(t, func(req wire.Envelope) []wire.Envelope {
		reg := req.(*wire.Registration)
		return []wire.Envelope{&wire.RegistrationResponse{
			Status:    wire.StatusError,
			ID:        uuid.Nil,
			RequestID: reg.RequestID,
		}}
	})
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), time.Second)

	id, err := c.Register(context.Background(), netip.MustParseAddrPort("127.0.0.1:6000"))
	assert.ErrorIs(t, err, ErrRegistrationRejected)
	assert.Equal(t, uuid.Nil, id)
}

func TestRendezvousClientLookup(t *testing.T) {
	known := uuid.New()
	knownAddr := netip.MustParseAddrPort("127.0.0.1:6001")
	index := newFakeIndex(t, func(req wire.Envelope) []wire.Envelope {
		lookup := req.(*wire.LookupRequest)
		resp := &wire.LookupResponse{Queried: lookup.Queried, RequestID: lookup.RequestID}
		if lookup.Queried == known {
			resp.Addr = knownAddr
		}
		return []wire.Envelope{resp}
	})
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), time.Second)

	addr, err := c.Lookup(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, knownAddr, addr)

	_, err = c.Lookup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPeerNotFound)
}

func TestRendezvousClientDropsStrayResponses(t *testing.T) {
	known := uuid.New()
	knownAddr := netip.MustParseAddrPort("127.0.0.1:6002")
	index := newFakeIndex(t, func(req wire.Envelope) []wire.Envelope {
		lookup := req.(*wire.LookupRequest)
		return []wire.Envelope{
			// Unknown token.
			&wire.LookupResponse{Queried: lookup.Queried, Addr: netip.MustParseAddrPort("10.0.0.1:1"), RequestID: "stray"},
			// Right token, wrong identifier.
			&wire.LookupResponse{Queried: uuid.New(), Addr: netip.MustParseAddrPort("10.0.0.2:2"), RequestID: lookup.RequestID},
			// Right token, wrong kind.
			&wire.RegistrationResponse{Status: wire.StatusOK, ID: uuid.New(), RequestID: lookup.RequestID},
			// No token.
			&wire.LookupResponse{Queried: lookup.Queried, Addr: netip.MustParseAddrPort("10.0.0.3:3")},
			&wire.LookupResponse{Queried: lookup.Queried, Addr: knownAddr, RequestID: lookup.RequestID},
		}
	})
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), time.Second)

	addr, err := c.Lookup(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, knownAddr, addr)
}

func TestRendezvousClientTimeout(t *testing.T) {
	index := newFakeIndex(t, func(wire.Envelope) []wire.Envelope { return nil })
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), 150*time.Millisecond)

	start := time.Now()
	_, err := c.Lookup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	c.mu.Lock()
	assert.Empty(t, c.pending, "timed out requests must leave the pending table")
	c.mu.Unlock()
}

func TestRendezvousClientContextCancel(t *testing.T) {
	index := newFakeIndex(t, func(wire.Envelope) []wire.Envelope { return nil })
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := c.Lookup(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRendezvousClientConcurrentLookups(t *testing.T) {
	index := newFakeIndex(t, func(req wire.Envelope) []wire.Envelope {
		lookup := req.(*wire.LookupRequest)
		// Echo an address derived from the identifier so each waiter can
		// check it received its own answer.
		port := uint16(lookup.Queried[0])<<8 | uint16(lookup.Queried[1]) | 1
		return []wire.Envelope{&wire.LookupResponse{
			Queried:   lookup.Queried,
			Addr:      netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port),
			RequestID: lookup.RequestID,
		}}
	})
	c := newTestRendezvousClient(t, index.conn.LocalAddr(), 2*time.Second)

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			id := uuid.New()
			addr, err := c.Lookup(context.Background(), id)
			if err == nil {
				want := uint16(id[0])<<8 | uint16(id[1]) | 1
				assert.Equal(t, want, addr.Port())
			}
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-errs)
	}
}
