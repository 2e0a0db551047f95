//go:build unix

// Package bind creates listening sockets for a dual-stack service: up to
// two descriptors, one per address family, bound to the same service.
package bind

import (
	"errors"
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"

	"dualdial/pkg/resolve"
)

const backlog = 5

// ErrNoCandidates is returned when the candidate list contains no
// usable IPv4 or IPv6 entry in its first two positions.
var ErrNoCandidates = errors.New("no IPv4 or IPv6 candidate")

// Listen classifies the first two candidates by family and creates one
// listening (or, for datagram candidates, bound) socket per family
// present. A family that fails to bind is dropped; Listen only fails
// when no socket at all could be produced. The returned descriptors are
// owned by the caller. The candidate slice is never modified.
func Listen(candidates []resolve.Candidate) ([]int, error) {
	var ipv4, ipv6 *resolve.Candidate
	n := len(candidates)
	if n > 2 {
		n = 2
	}
	for i := 0; i < n; i++ {
		switch candidates[i].Family {
		case unix.AF_INET:
			ipv4 = &candidates[i]
		case unix.AF_INET6:
			ipv6 = &candidates[i]
		}
	}

	fds := make([]int, 0, 2)
	var lastErr error

	// IPv6 first: a wildcard IPv6 socket may claim the IPv4 port too.
	if ipv6 != nil {
		fd, err := listenFD(*ipv6)
		if err != nil {
			lastErr = err
		} else {
			fds = append(fds, fd)
		}
	}
	if ipv4 != nil {
		fd, err := listenFD(*ipv4)
		if err != nil {
			lastErr = err
		} else {
			fds = append(fds, fd)
		}
	}

	if len(fds) == 0 {
		if lastErr == nil {
			lastErr = ErrNoCandidates
		}
		return nil, lastErr
	}
	return fds, nil
}

// listenFD creates, configures, and binds a socket for one candidate.
// Stream and seq-packet sockets are put into listening state; datagram
// sockets are only bound.
func listenFD(c resolve.Candidate) (int, error) {
	fd, err := unix.Socket(c.Family, c.SockType, c.Protocol)
	if err != nil {
		return -1, fmt.Errorf("socket for %s: %w", c.AddrPort(), err)
	}

	// Restarting a server must not fail on a port still in TIME_WAIT.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	if err := unix.Bind(fd, c.Addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", c.AddrPort(), err)
	}

	if shouldListen(c.SockType) {
		if err := unix.Listen(fd, backlog); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("listen %s: %w", c.AddrPort(), err)
		}
	}

	return fd, nil
}

// Close releases a descriptor returned by Listen that was not adopted
// into a net.Listener or net.PacketConn.
func Close(fd int) error {
	return unix.Close(fd)
}

func shouldListen(sockType int) bool {
	return sockType == unix.SOCK_STREAM || sockType == unix.SOCK_SEQPACKET
}

// Addr reports the local address a descriptor is bound to. Useful when
// binding to port 0 and the kernel picked the port.
func Addr(fd int) (netip.AddrPort, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("getsockname: %w", err)
	}

	ap := resolve.Candidate{Addr: sa}.AddrPort()
	if !ap.IsValid() {
		return netip.AddrPort{}, fmt.Errorf("unexpected address family %T", sa)
	}
	return ap, nil
}
