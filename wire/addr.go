package wire

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// NotFound is the textual "no address on record" value of a LookupResponse.
const NotFound = "nil"

var errZeroPort = errors.New("port must be non-zero")

// ParseAddr parses the textual form of a network address ("ip:port").
// IPv4-mapped IPv6 addresses are unmapped so that the same endpoint always
// has the same representation.
func ParseAddr(s string) (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if ap.Port() == 0 {
		return netip.AddrPort{}, errZeroPort
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}

// AddrPortFromNet converts a net.Addr reported by a socket into an AddrPort.
func AddrPortFromNet(addr net.Addr) (netip.AddrPort, error) {
	if addr == nil {
		return netip.AddrPort{}, errors.New("nil address")
	}
	if udp, ok := addr.(*net.UDPAddr); ok {
		ap := udp.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("unsupported address %q: %w", addr.String(), err)
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}

// NetAddr converts an AddrPort into a net.Addr usable with a net.PacketConn.
func NetAddr(ap netip.AddrPort) net.Addr {
	return net.UDPAddrFromAddrPort(ap)
}
