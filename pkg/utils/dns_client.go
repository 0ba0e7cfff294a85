package utils

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// UpstreamResolver answers forward and reverse lookups by querying a single
// DNS server directly instead of going through the system resolver.
type UpstreamResolver struct {
	server  string
	timeout time.Duration
}

// NewUpstreamResolver creates a resolver for server ("1.1.1.1" or
// "[2606:4700:4700::1111]:53"). Port 53 is assumed when none is given.
func NewUpstreamResolver(server string, timeout time.Duration) *UpstreamResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}
	return &UpstreamResolver{server: server, timeout: timeout}
}

// Server returns the host:port queried.
func (u *UpstreamResolver) Server() string {
	return u.server
}

// exchange sends one query over UDP and retries over TCP when the answer
// was truncated.
func (u *UpstreamResolver) exchange(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	c := &dns.Client{Timeout: u.timeout}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.SetEdns0(4096, false)

	resp, _, err := c.ExchangeContext(ctx, msg, u.server)
	if err == nil && resp != nil && resp.Truncated {
		c.Net = "tcp"
		resp, _, err = c.ExchangeContext(ctx, msg, u.server)
	}
	if err != nil {
		return nil, &net.DNSError{Err: err.Error(), Name: name, Server: u.server, IsTimeout: isTimeout(err)}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp.Answer, nil
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: name, Server: u.server, IsNotFound: true}
	default:
		return nil, &net.DNSError{Err: fmt.Sprintf("server answered %s", dns.RcodeToString[resp.Rcode]), Name: name, Server: u.server}
	}
}

// LookupIP implements Resolver. network is "ip", "ip4" or "ip6".
func (u *UpstreamResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	var qtypes []uint16
	switch network {
	case "ip4":
		qtypes = []uint16{dns.TypeA}
	case "ip6":
		qtypes = []uint16{dns.TypeAAAA}
	case "ip":
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	default:
		return nil, &net.DNSError{Err: "unsupported network " + network, Name: host}
	}

	var ips []net.IP
	var lastErr error
	for _, qtype := range qtypes {
		rrs, err := u.exchange(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range rrs {
			switch rec := rr.(type) {
			case *dns.A:
				ips = append(ips, rec.A)
			case *dns.AAAA:
				ips = append(ips, rec.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &net.DNSError{Err: "no such host", Name: host, Server: u.server, IsNotFound: true}
	}
	return ips, nil
}

// LookupAddr implements Resolver.
func (u *UpstreamResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, &net.DNSError{Err: "unrecognized address", Name: addr}
	}

	rrs, err := u.exchange(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range rrs {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	if len(names) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: arpa, Server: u.server, IsNotFound: true}
	}
	return names, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
