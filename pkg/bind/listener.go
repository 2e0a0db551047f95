//go:build unix

package bind

import (
	"fmt"
	"net"
	"os"
)

// AsListeners adopts the descriptors returned by Listen into
// net.Listeners. The descriptors are consumed; on failure every
// descriptor and already-adopted listener is closed.
func AsListeners(fds []int) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(fds))
	for i, fd := range fds {
		ln, err := asListener(fd)
		if err != nil {
			for _, rest := range fds[i+1:] {
				Close(rest)
			}
			for _, l := range listeners {
				l.Close()
			}
			return nil, err
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

func asListener(fd int) (net.Listener, error) {
	f := os.NewFile(uintptr(fd), "listening-socket")
	if f == nil {
		return nil, fmt.Errorf("invalid descriptor %d", fd)
	}
	defer f.Close() // net.FileListener duplicates the descriptor

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("net.FileListener: %w", err)
	}
	return ln, nil
}

// AsPacketConn adopts a bound datagram descriptor into a net.PacketConn.
// The descriptor is consumed.
func AsPacketConn(fd int) (net.PacketConn, error) {
	f := os.NewFile(uintptr(fd), "bound-socket")
	if f == nil {
		return nil, fmt.Errorf("invalid descriptor %d", fd)
	}
	defer f.Close() // net.FilePacketConn duplicates the descriptor

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("net.FilePacketConn: %w", err)
	}
	return pc, nil
}

// AcceptFirst waits on all listeners at once and returns the first
// inbound connection. Accepts that fail are tolerated as long as one
// listener delivers; the last error is returned when none does.
// Connections a slower listener delivers after the winner are closed.
// Listeners stay open and keep accepting in the background until closed
// by the caller, so AcceptFirst must not be called concurrently with
// itself on the same listeners.
func AcceptFirst(listeners []net.Listener) (net.Conn, error) {
	if len(listeners) == 0 {
		return nil, fmt.Errorf("no listeners")
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, len(listeners))

	for _, ln := range listeners {
		go func(ln net.Listener) {
			conn, err := ln.Accept()
			ch <- result{conn, err}
		}(ln)
	}

	var lastErr error
	for i := range listeners {
		res := <-ch
		if res.err != nil {
			lastErr = res.err
			continue
		}

		// Close connections the losing goroutines still deliver.
		go func(pending int) {
			for j := 0; j < pending; j++ {
				if late := <-ch; late.err == nil {
					late.conn.Close()
				}
			}
		}(len(listeners) - i - 1)

		return res.conn, nil
	}
	return nil, lastErr
}
