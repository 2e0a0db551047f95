//go:build unix

// Package resolve turns host and service names into connectable socket
// candidates. It is a thin wrapper around the system resolver: one
// Candidate per resolved address, in resolution order. Callers own the
// returned slice; the core packages treat it as read-only.
package resolve

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/sys/unix"
)

// Config holds the resolver configuration. The zero value uses the
// system default resolver with no search domains.
type Config struct {
	// Nameservers is a list of nameservers to use.
	// If empty, the system default resolver is used.
	Nameservers []string
	// SearchDomains is a list of search domains to try for relative names.
	SearchDomains []string
	// Options is a list of resolver options. Supported:
	// - ndots:<n> sets the number of dots that must appear in a name
	//   before an initial absolute query is made. The default is 1.
	Options []string
}

var defaultConfig Config

// ClientLookup resolves host and service into candidates for an
// outbound connection, using the default resolver configuration.
func ClientLookup(ctx context.Context, host, service string, sockType int) ([]Candidate, error) {
	return defaultConfig.ClientLookup(ctx, host, service, sockType)
}

// ServerLookup resolves host and service into candidates for local
// binding, using the default resolver configuration.
func ServerLookup(ctx context.Context, host, service string, sockType int) ([]Candidate, error) {
	return defaultConfig.ServerLookup(ctx, host, service, sockType)
}

// ClientLookup resolves host and service into candidates for an outbound
// connection. Candidates appear in resolution order, so the first entry
// of each family is the one the racer will attempt.
func (r *Config) ClientLookup(ctx context.Context, host, service string, sockType int) ([]Candidate, error) {
	port, err := r.resolver().LookupPort(ctx, networkFor(sockType), service)
	if err != nil {
		return nil, fmt.Errorf("looking up service %q: %w", service, err)
	}

	addrs, err := r.lookupIPAddrs(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("looking up host %q: %w", host, err)
	}

	return candidates(addrs, port, sockType)
}

// ServerLookup resolves host and service into candidates for local
// binding. An empty host yields wildcard candidates, the IPv6 one first
// so the binder can claim the port for both families where the platform
// supports it.
func (r *Config) ServerLookup(ctx context.Context, host, service string, sockType int) ([]Candidate, error) {
	port, err := r.resolver().LookupPort(ctx, networkFor(sockType), service)
	if err != nil {
		return nil, fmt.Errorf("looking up service %q: %w", service, err)
	}

	if host == "" {
		v6, _ := candidateFor(net.IPv6unspecified, "", port, sockType)
		v4, _ := candidateFor(net.IPv4zero, "", port, sockType)
		return []Candidate{v6, v4}, nil
	}

	addrs, err := r.lookupIPAddrs(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("looking up host %q: %w", host, err)
	}

	return candidates(addrs, port, sockType)
}

func candidates(addrs []net.IPAddr, port, sockType int) ([]Candidate, error) {
	out := make([]Candidate, 0, len(addrs))
	for _, addr := range addrs {
		if c, ok := candidateFor(addr.IP, addr.Zone, port, sockType); ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no IPv4 or IPv6 address: %w", unix.EADDRNOTAVAIL)
	}
	return out, nil
}

// lookupIPAddrs resolves a hostname, trying search domains first for
// relative names the way libc resolvers do.
func (r *Config) lookupIPAddrs(ctx context.Context, host string) ([]net.IPAddr, error) {
	resolver := r.resolver()

	if strings.Count(host, ".") < r.ndots() && !dns.IsFqdn(host) {
		for _, domain := range r.SearchDomains {
			addrs, err := resolver.LookupIPAddr(ctx, host+"."+domain)
			if err == nil && len(addrs) > 0 {
				return addrs, nil
			}
		}
	}

	return resolver.LookupIPAddr(ctx, host)
}

func (r *Config) resolver() *net.Resolver {
	if len(r.Nameservers) == 0 {
		return net.DefaultResolver
	}

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			ns := r.Nameservers[rand.IntN(len(r.Nameservers))]

			// If the nameserver does not have a port, add the default DNS port.
			if _, _, err := net.SplitHostPort(ns); err != nil {
				ns = net.JoinHostPort(ns, "53")
			}

			var d net.Dialer
			return d.DialContext(ctx, network, ns)
		},
	}
}

func (r *Config) ndots() int {
	ndots := 1
	for _, opt := range r.Options {
		if strings.HasPrefix(opt, "ndots:") {
			if n, err := fmt.Sscanf(opt[6:], "%d", &ndots); err != nil || n != 1 {
				ndots = 1
			}
		}
	}
	return ndots
}

func networkFor(sockType int) string {
	if sockType == Datagram {
		return "udp"
	}
	return "tcp"
}
