//go:build unix

// Package race implements connection racing: the first IPv4 and first
// IPv6 candidate are connected concurrently with non-blocking sockets,
// and the first connection to complete wins. Racing both families avoids
// stalling on a host whose IPv6 (or IPv4) route is dead.
package race

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"dualdial/pkg/resolve"
)

// ErrNoCandidates is returned when the candidate list contains no
// usable IPv4 or IPv6 entry.
var ErrNoCandidates = errors.New("no IPv4 or IPv6 candidate")

// attempt tracks one in-flight connect.
type attempt struct {
	fd   int
	cand resolve.Candidate
}

// Connect races non-blocking connects across at most two candidates: the
// first IPv4 and the first IPv6 entry of the list. Later entries of an
// already-seen family are ignored. It returns the descriptor of the
// winning connection, restored to blocking mode, with every other
// descriptor it created closed. On failure it returns the most specific
// error encountered last.
//
// The wait for connection completion has no timeout; callers needing
// bounded latency must enforce it around this call. Connect never
// modifies the candidate slice.
func Connect(candidates []resolve.Candidate) (int, error) {
	var ipv4, ipv6 *resolve.Candidate
	for i := range candidates {
		switch candidates[i].Family {
		case unix.AF_INET:
			if ipv4 == nil {
				ipv4 = &candidates[i]
			}
		case unix.AF_INET6:
			if ipv6 == nil {
				ipv6 = &candidates[i]
			}
		}
	}
	if ipv4 == nil && ipv6 == nil {
		return -1, ErrNoCandidates
	}

	var lastErr error

	// IPv6 gets a slight edge by being connected first.
	attempts := make([]attempt, 0, 2)
	for _, c := range []*resolve.Candidate{ipv6, ipv4} {
		if c == nil {
			continue
		}
		fd, err := unix.Socket(c.Family, c.SockType, c.Protocol)
		if err != nil {
			// Family not available on this host; drop it.
			lastErr = fmt.Errorf("socket for %s: %w", c.AddrPort(), err)
			continue
		}
		attempts = append(attempts, attempt{fd: fd, cand: *c})
	}

	pending := make([]attempt, 0, len(attempts))
	for i, a := range attempts {
		if err := unix.SetNonblock(a.fd, true); err != nil {
			unix.Close(a.fd)
			lastErr = fmt.Errorf("set nonblocking: %w", err)
			continue
		}

		err := unix.Connect(a.fd, a.cand.Addr)
		if err == nil {
			// Connect can be instant; no need to wait at all.
			closeAll(pending)
			closeAll(attempts[i+1:])
			return restoreBlocking(a)
		}
		if err != unix.EINPROGRESS {
			unix.Close(a.fd)
			lastErr = fmt.Errorf("connect %s: %w", a.cand.AddrPort(), err)
			continue
		}
		pending = append(pending, a)
	}

	for len(pending) > 0 {
		pfds := make([]unix.PollFd, len(pending))
		for i, a := range pending {
			pfds[i] = unix.PollFd{Fd: int32(a.fd), Events: unix.POLLOUT}
		}

		if _, err := unix.Poll(pfds, -1); err != nil {
			if err == unix.EINTR {
				// The runtime's preemption signals interrupt ppoll.
				continue
			}
			closeAll(pending)
			return -1, fmt.Errorf("poll: %w", err)
		}

		// Rebuild the pending list, keeping only attempts still in flight.
		next := make([]attempt, 0, len(pending))
		for i, a := range pending {
			if pfds[i].Revents == 0 {
				next = append(next, a)
				continue
			}

			soErr, err := unix.GetsockoptInt(a.fd, unix.SOL_SOCKET, unix.SO_ERROR)
			if err != nil {
				unix.Close(a.fd)
				closeAll(pending[i+1:])
				closeAll(next)
				return -1, fmt.Errorf("getsockopt SO_ERROR: %w", err)
			}

			if soErr == 0 {
				closeAll(pending[i+1:])
				closeAll(next)
				return restoreBlocking(a)
			}

			unix.Close(a.fd)
			lastErr = fmt.Errorf("connect %s: %w", a.cand.AddrPort(), unix.Errno(soErr))
		}
		pending = next
	}

	return -1, lastErr
}

// restoreBlocking hands the winner back in blocking mode. A descriptor
// that cannot be restored must not reach the caller, so failure here
// fails the whole race.
func restoreBlocking(a attempt) (int, error) {
	if err := unix.SetNonblock(a.fd, false); err != nil {
		unix.Close(a.fd)
		return -1, fmt.Errorf("restore blocking mode: %w", err)
	}
	return a.fd, nil
}

func closeAll(attempts []attempt) {
	for _, a := range attempts {
		unix.Close(a.fd)
	}
}
