package utils

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/vit0-9/netecho/pkg/metrics"
)

// RDNSLookup performs best-effort reverse DNS lookups.
type RDNSLookup struct {
	resolver Resolver
	timeout  time.Duration
}

// NewRDNSLookup creates a reverse DNS lookup. A nil resolver means
// net.DefaultResolver.
func NewRDNSLookup(resolver Resolver, timeout time.Duration) *RDNSLookup {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &RDNSLookup{resolver: resolver, timeout: timeout}
}

// Lookup returns the first PTR name of addr without the trailing dot, or
// "" when there is no record, the answer only echoes the address back, or
// the lookup failed.
func (l *RDNSLookup) Lookup(ctx context.Context, addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	ipText := addr.Unmap().String()
	start := time.Now()
	names, err := l.resolver.LookupAddr(ctx, ipText)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			metrics.ObserveLookup(metrics.LookupReverse, metrics.OutcomeNotFound, start)
			log.Debug().Str("ip", ipText).Msg("no PTR record")
		} else {
			metrics.ObserveLookup(metrics.LookupReverse, metrics.OutcomeError, start)
			log.Warn().Err(err).Str("ip", ipText).Msg("reverse DNS lookup failed")
		}
		return ""
	}

	for _, name := range names {
		host := cleanHostname(name)
		if host == "" || host == ipText {
			continue
		}
		metrics.ObserveLookup(metrics.LookupReverse, metrics.OutcomeHit, start)
		return host
	}

	metrics.ObserveLookup(metrics.LookupReverse, metrics.OutcomeNotFound, start)
	log.Debug().Str("ip", ipText).Msg("PTR answer only echoed the address")
	return ""
}

// cleanHostname removes the trailing dot from DNS names.
func cleanHostname(hostname string) string {
	return strings.TrimSuffix(strings.TrimSpace(hostname), ".")
}

// RegistrableDomain returns the public-suffix-plus-one of hostname, e.g.
// "dns.google" for "dns.google" and "example.co.uk" for "a.b.example.co.uk".
// It returns "" when hostname has no registrable part.
func RegistrableDomain(hostname string) string {
	if hostname == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(hostname))
	if err != nil {
		return ""
	}
	return domain
}
