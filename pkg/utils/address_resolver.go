package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/vit0-9/netecho/pkg/metrics"
)

// ErrNoAddress is returned when a lookup succeeds without a usable answer.
var ErrNoAddress = errors.New("no usable address in answer")

// ErrEmptyHost is returned when there is no host to resolve.
var ErrEmptyHost = errors.New("empty host")

// Resolver is the subset of *net.Resolver used for forward and reverse
// lookups. UpstreamResolver implements it on top of a fixed DNS server.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// ResolutionError means the server address could not be determined.
type ResolutionError struct {
	Host    string
	Network string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q (%s): %v", e.Host, e.Network, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AddressResolver turns the host a request was sent to into an IP address.
type AddressResolver struct {
	resolver Resolver
	timeout  time.Duration
}

// NewAddressResolver creates an AddressResolver. A nil resolver means
// net.DefaultResolver; a zero timeout means no extra deadline.
func NewAddressResolver(resolver Resolver, timeout time.Duration) *AddressResolver {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &AddressResolver{resolver: resolver, timeout: timeout}
}

// familyNetwork maps an IP version to the network name understood by
// LookupIP.
func familyNetwork(ipVersion int) string {
	if ipVersion == 6 {
		return "ip6"
	}
	return "ip4"
}

// Resolve returns host unchanged when it is an IP literal. Otherwise it
// resolves host in the address family of the client (clientVersion 4 or 6)
// and returns the first answer.
func (a *AddressResolver) Resolve(ctx context.Context, host string, clientVersion int) (netip.Addr, error) {
	network := familyNetwork(clientVersion)
	if host == "" {
		return netip.Addr{}, &ResolutionError{Host: host, Network: network, Err: ErrEmptyHost}
	}

	if addr, err := ParseIP(host); err == nil {
		return addr, nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	ips, err := a.resolver.LookupIP(ctx, network, host)
	if err != nil {
		metrics.ObserveLookup(metrics.LookupForward, metrics.OutcomeError, start)
		return netip.Addr{}, &ResolutionError{Host: host, Network: network, Err: err}
	}

	for _, ip := range ips {
		if addr, ok := netip.AddrFromSlice(ip); ok {
			metrics.ObserveLookup(metrics.LookupForward, metrics.OutcomeHit, start)
			return addr.Unmap(), nil
		}
	}

	metrics.ObserveLookup(metrics.LookupForward, metrics.OutcomeNotFound, start)
	return netip.Addr{}, &ResolutionError{Host: host, Network: network, Err: ErrNoAddress}
}
