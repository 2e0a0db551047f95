//go:build unix

package bind

import (
	"errors"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"dualdial/pkg/resolve"
)

func candidate(t *testing.T, ip string, port, sockType int) resolve.Candidate {
	t.Helper()

	addr := netip.MustParseAddr(ip)
	proto := unix.IPPROTO_TCP
	if sockType == unix.SOCK_DGRAM {
		proto = unix.IPPROTO_UDP
	}

	if addr.Is4() {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], addr.AsSlice())
		return resolve.Candidate{Family: unix.AF_INET, SockType: sockType, Protocol: proto, Addr: sa}
	}

	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], addr.AsSlice())
	return resolve.Candidate{Family: unix.AF_INET6, SockType: sockType, Protocol: proto, Addr: sa}
}

func ipv6Available(t *testing.T) bool {
	t.Helper()

	ln, err := net.Listen("tcp6", "[::1]:0")
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

func TestListen_EmptyCandidates(t *testing.T) {
	t.Parallel()

	_, err := Listen(nil)
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Listen(nil) error = %v, want %v", err, ErrNoCandidates)
	}
}

func TestListen_DualStackLoopback(t *testing.T) {
	t.Parallel()

	if !ipv6Available(t) {
		t.Skip("IPv6 loopback not available")
	}

	fds, err := Listen([]resolve.Candidate{
		candidate(t, "::1", 0, unix.SOCK_STREAM),
		candidate(t, "127.0.0.1", 0, unix.SOCK_STREAM),
	})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if len(fds) != 2 {
		t.Fatalf("Listen() produced %d sockets, want 2", len(fds))
	}

	listeners, err := AsListeners(fds)
	if err != nil {
		t.Fatalf("AsListeners() error = %v", err)
	}
	for _, ln := range listeners {
		defer ln.Close()
	}

	// Each listener must accept an inbound connection.
	for _, ln := range listeners {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dialing %s: %v", ln.Addr(), err)
		}
		accepted, err := ln.Accept()
		if err != nil {
			t.Fatalf("Accept() on %s: %v", ln.Addr(), err)
		}
		accepted.Close()
		conn.Close()
	}
}

func TestListen_IPv4Only(t *testing.T) {
	t.Parallel()

	fds, err := Listen([]resolve.Candidate{candidate(t, "127.0.0.1", 0, unix.SOCK_STREAM)})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if len(fds) != 1 {
		t.Fatalf("Listen() produced %d sockets, want 1", len(fds))
	}
	defer Close(fds[0])

	ap, err := Addr(fds[0])
	if err != nil {
		t.Fatalf("Addr() error = %v", err)
	}
	if ap.Port() == 0 {
		t.Error("Addr() reports port 0 after binding")
	}
}

func TestListen_PortConflictIsNonFatal(t *testing.T) {
	t.Parallel()

	if !ipv6Available(t) {
		t.Skip("IPv6 loopback not available")
	}

	// Reserve a port, then offer both wildcard families on it. If the
	// platform's IPv6 wildcard bind claims the IPv4 port too, the IPv4
	// bind fails; that must not fail the call as a whole.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	fds, err := Listen([]resolve.Candidate{
		candidate(t, "::", port, unix.SOCK_STREAM),
		candidate(t, "0.0.0.0", port, unix.SOCK_STREAM),
	})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if len(fds) < 1 || len(fds) > 2 {
		t.Fatalf("Listen() produced %d sockets, want 1 or 2", len(fds))
	}
	for _, fd := range fds {
		Close(fd)
	}
}

func TestListen_OnlyFirstTwoEntriesClassified(t *testing.T) {
	t.Parallel()

	if !ipv6Available(t) {
		t.Skip("IPv6 loopback not available")
	}

	// The IPv6 candidate sits in third position and must be ignored.
	fds, err := Listen([]resolve.Candidate{
		candidate(t, "127.0.0.1", 0, unix.SOCK_STREAM),
		candidate(t, "127.0.0.1", 0, unix.SOCK_STREAM),
		candidate(t, "::1", 0, unix.SOCK_STREAM),
	})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() {
		for _, fd := range fds {
			Close(fd)
		}
	}()

	if len(fds) != 1 {
		t.Fatalf("Listen() produced %d sockets, want 1", len(fds))
	}
	ap, err := Addr(fds[0])
	if err != nil {
		t.Fatalf("Addr() error = %v", err)
	}
	if !ap.Addr().Is4() && !ap.Addr().Is4In6() {
		t.Errorf("bound %s, want an IPv4 address", ap)
	}
}

func TestListen_DatagramBoundNotListening(t *testing.T) {
	t.Parallel()

	fds, err := Listen([]resolve.Candidate{candidate(t, "127.0.0.1", 0, unix.SOCK_DGRAM)})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if len(fds) != 1 {
		t.Fatalf("Listen() produced %d sockets, want 1", len(fds))
	}

	pc, err := AsPacketConn(fds[0])
	if err != nil {
		t.Fatalf("AsPacketConn() error = %v", err)
	}
	defer pc.Close()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("net.Dial(udp) error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("datagram")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if string(buf[:n]) != "datagram" {
		t.Errorf("ReadFrom() = %q, want %q", string(buf[:n]), "datagram")
	}
}

func TestAcceptFirst(t *testing.T) {
	t.Parallel()

	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln1.Close()

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln2.Close()

	dialed, err := net.Dial("tcp", ln2.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial() error = %v", err)
	}
	defer dialed.Close()

	conn, err := AcceptFirst([]net.Listener{ln1, ln2})
	if err != nil {
		t.Fatalf("AcceptFirst() error = %v", err)
	}
	defer conn.Close()

	if conn.LocalAddr().String() != ln2.Addr().String() {
		t.Errorf("accepted on %s, want %s", conn.LocalAddr(), ln2.Addr())
	}
}

func TestAcceptFirst_NoListeners(t *testing.T) {
	t.Parallel()

	if _, err := AcceptFirst(nil); err == nil {
		t.Error("AcceptFirst(nil) error = nil, want error")
	}
}

func TestAcceptFirst_ClosesStragglerConnection(t *testing.T) {
	t.Parallel()

	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln1.Close()

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln2.Close()

	// Connect to both listeners so a second accept lands after the winner.
	c1, err := net.Dial("tcp", ln1.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial() error = %v", err)
	}
	defer c1.Close()

	c2, err := net.Dial("tcp", ln2.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial() error = %v", err)
	}
	defer c2.Close()

	conn, err := AcceptFirst([]net.Listener{ln1, ln2})
	if err != nil {
		t.Fatalf("AcceptFirst() error = %v", err)
	}
	defer conn.Close()

	loser := c1
	if conn.LocalAddr().String() == ln1.Addr().String() {
		loser = c2
	}

	// The losing client's connection gets closed, not left dangling.
	loser.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	if _, err := loser.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("losing connection Read() error = %v, want %v", err, io.EOF)
	}
}
