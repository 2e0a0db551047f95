//go:build unix

package resolve

import (
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Socket types accepted by the lookup functions.
const (
	Stream   = unix.SOCK_STREAM
	Datagram = unix.SOCK_DGRAM
)

// Candidate describes one resolved network target: its address family,
// socket type, protocol, and socket address. Candidates are produced by
// the lookup functions in resolution order; the race and bind packages
// read them but never modify them.
type Candidate struct {
	Family   int // unix.AF_INET or unix.AF_INET6
	SockType int // Stream or Datagram
	Protocol int
	Addr     unix.Sockaddr
}

// AddrPort returns the candidate's address in netip form for display.
// It returns the zero AddrPort for families it does not know.
func (c Candidate) AddrPort() netip.AddrPort {
	switch sa := c.Addr.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	}
	return netip.AddrPort{}
}

func protocolFor(sockType int) int {
	if sockType == Datagram {
		return unix.IPPROTO_UDP
	}
	return unix.IPPROTO_TCP
}

// candidateFor builds a Candidate from a resolved IP. The second return
// value is false for addresses that are neither IPv4 nor IPv6.
func candidateFor(ip net.IP, zone string, port, sockType int) (Candidate, bool) {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return Candidate{
			Family:   unix.AF_INET,
			SockType: sockType,
			Protocol: protocolFor(sockType),
			Addr:     sa,
		}, true
	}

	if ip16 := ip.To16(); ip16 != nil {
		sa := &unix.SockaddrInet6{Port: port}
		copy(sa.Addr[:], ip16)
		if zone != "" {
			if ifi, err := net.InterfaceByName(zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return Candidate{
			Family:   unix.AF_INET6,
			SockType: sockType,
			Protocol: protocolFor(sockType),
			Addr:     sa,
		}, true
	}

	return Candidate{}, false
}
