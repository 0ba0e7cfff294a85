package utils

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// stubResolver answers from fixed maps and records the networks queried.
type stubResolver struct {
	ips      map[string][]net.IP
	names    map[string][]string
	err      error
	networks []string
}

func (s *stubResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	s.networks = append(s.networks, network)
	if s.err != nil {
		return nil, s.err
	}
	ips, ok := s.ips[network+"/"+host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return ips, nil
}

func (s *stubResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	names, ok := s.names[addr]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: addr, IsNotFound: true}
	}
	return names, nil
}

func TestAddressResolver_Resolve_ReturnsLiteralsUnchanged(t *testing.T) {
	stub := &stubResolver{}
	r := NewAddressResolver(stub, time.Second)

	tests := map[string]string{
		"192.0.2.10":           "192.0.2.10",
		"8.8.8.8":              "8.8.8.8",
		"2001:db8::1":          "2001:db8::1",
		"[2001:4860:4860::88]": "2001:4860:4860::88",
		"::ffff:10.0.0.1":      "::ffff:10.0.0.1",
	}

	for host, expected := range tests {
		addr, err := r.Resolve(context.Background(), host, 4)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", host, err)
			continue
		}
		if addr.String() != expected {
			t.Errorf("%q: expected %s, got %s", host, expected, addr)
		}
	}
	if len(stub.networks) != 0 {
		t.Errorf("expected no DNS queries for literals, got %v", stub.networks)
	}
}

func TestAddressResolver_Resolve_UsesClientFamily(t *testing.T) {
	stub := &stubResolver{ips: map[string][]net.IP{
		"ip4/example.com": {net.ParseIP("93.184.216.34"), net.ParseIP("93.184.216.35")},
		"ip6/example.com": {net.ParseIP("2606:2800:220:1::248")},
	}}
	r := NewAddressResolver(stub, time.Second)

	v4, err := r.Resolve(context.Background(), "example.com", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v4.String() != "93.184.216.34" {
		t.Errorf("expected first IPv4 answer, got %s", v4)
	}

	v6, err := r.Resolve(context.Background(), "example.com", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v6.String() != "2606:2800:220:1::248" {
		t.Errorf("expected IPv6 answer, got %s", v6)
	}

	if len(stub.networks) != 2 || stub.networks[0] != "ip4" || stub.networks[1] != "ip6" {
		t.Errorf("expected ip4 then ip6 queries, got %v", stub.networks)
	}
}

func TestAddressResolver_Resolve_FailureIsResolutionError(t *testing.T) {
	r := NewAddressResolver(&stubResolver{}, time.Second)

	_, err := r.Resolve(context.Background(), "missing.example", 4)

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if resErr.Host != "missing.example" || resErr.Network != "ip4" {
		t.Errorf("unexpected error fields: %+v", resErr)
	}
}

func TestAddressResolver_Resolve_EmptyAnswer(t *testing.T) {
	stub := &stubResolver{ips: map[string][]net.IP{"ip4/empty.example": {}}}
	r := NewAddressResolver(stub, time.Second)

	_, err := r.Resolve(context.Background(), "empty.example", 4)

	if !errors.Is(err, ErrNoAddress) {
		t.Errorf("expected ErrNoAddress, got %v", err)
	}
}

func TestAddressResolver_Resolve_EmptyHost(t *testing.T) {
	r := NewAddressResolver(&stubResolver{}, time.Second)

	_, err := r.Resolve(context.Background(), "", 6)

	if !errors.Is(err, ErrEmptyHost) {
		t.Errorf("expected ErrEmptyHost, got %v", err)
	}
}

func TestNewUpstreamResolver_AddsDefaultPort(t *testing.T) {
	tests := map[string]string{
		"1.1.1.1":                   "1.1.1.1:53",
		"1.1.1.1:5353":              "1.1.1.1:5353",
		"2606:4700:4700::1111":      "[2606:4700:4700::1111]:53",
		"[2606:4700:4700::1111]":    "[2606:4700:4700::1111]:53",
		"[2606:4700:4700::1111]:54": "[2606:4700:4700::1111]:54",
	}

	for in, expected := range tests {
		if got := NewUpstreamResolver(in, time.Second).Server(); got != expected {
			t.Errorf("%q: expected %q, got %q", in, expected, got)
		}
	}
}

func TestUpstreamResolver_LookupIP_RejectsUnknownNetwork(t *testing.T) {
	u := NewUpstreamResolver("127.0.0.1", time.Second)

	_, err := u.LookupIP(context.Background(), "tcp", "example.com")

	if err == nil {
		t.Error("expected error for unsupported network")
	}
}

// Integration test - skip if no network
func TestUpstreamResolver_LookupAddr_ReturnsRealData(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	u := NewUpstreamResolver("8.8.8.8", 3*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names, err := u.LookupAddr(ctx, "8.8.8.8")

	if err != nil {
		t.Skipf("upstream not reachable: %v", err)
	}
	if len(names) == 0 || cleanHostname(names[0]) != "dns.google" {
		t.Errorf("expected dns.google, got %v", names)
	}
}
