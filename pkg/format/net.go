// Package format renders network addresses for display.
package format

import (
	"fmt"
	"net/netip"
	"strings"
)

// Addr joins host and port, bracketing IPv6 hosts.
func Addr(host string, port int) string {
	if strings.ContainsAny(host, ":") { // IPv6
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// AddrPort renders a resolved address, or a placeholder when the
// address is not valid (e.g. an unsupported family).
func AddrPort(ap netip.AddrPort) string {
	if !ap.IsValid() {
		return "<invalid>"
	}
	return ap.String()
}
