package domain

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"
)

const arinResponse = `
#
# ARIN WHOIS data and services are subject to the Terms of Use
#

NetRange:       8.8.8.0 - 8.8.8.255
CIDR:           8.8.8.0/24
NetName:        GOGL
NetHandle:      NET-8-8-8-0-2
Parent:         NET8 (NET-8-0-0-0-0)
NetType:        Direct Allocation
Organization:   Google LLC (GOGL)
Ref:            https://rdap.arin.net/registry/ip/8.8.8.0

OrgName:        Google LLC
OrgId:          GOGL
City:           Mountain View
Country:        US
Comment:        Please note that the recommended way to file abuse complaints are located in the following links.
Comment:        Please note that the recommended way to file abuse complaints are located in the following links.
Ref:            https://rdap.arin.net/registry/entity/GOGL
`

const ripeResponse = `
% This is the RIPE Database query service.

inetnum:        193.0.0.0 - 193.0.7.255
netname:        RIPE-NCC
descr:          RIPE Network Coordination Centre
descr:          Amsterdam, Netherlands
org:            ORG-RIEN1-RIPE
country:        nl
status:         ASSIGNED PA

organisation:   ORG-RIEN1-RIPE
org-name:       Reseaux IP Europeens Network Coordination Centre (RIPE NCC)
country:        NL
`

func TestParseWhoisResponse_ARIN(t *testing.T) {
	record, err := parseWhoisResponse(arinResponse)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EntityName != "GOGL" {
		t.Errorf("expected net name 'GOGL', got %q", record.EntityName)
	}
	if record.Registrant != "Google LLC" {
		t.Errorf("expected registrant 'Google LLC', got %q", record.Registrant)
	}
	if record.Country != "US" {
		t.Errorf("expected country 'US', got %q", record.Country)
	}
	if record.InfoURL != "https://rdap.arin.net/registry/ip/8.8.8.0" {
		t.Errorf("expected network ref, got %q", record.InfoURL)
	}
	if len(record.Description) != 1 {
		t.Errorf("expected duplicate comments to collapse, got %v", record.Description)
	}
}

func TestParseWhoisResponse_RIPE(t *testing.T) {
	record, err := parseWhoisResponse(ripeResponse)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EntityName != "RIPE-NCC" {
		t.Errorf("expected net name 'RIPE-NCC', got %q", record.EntityName)
	}
	if !strings.Contains(record.Registrant, "RIPE NCC") {
		t.Errorf("expected org-name as registrant, got %q", record.Registrant)
	}
	if record.Country != "NL" {
		t.Errorf("expected upper-cased first country, got %q", record.Country)
	}
	if record.InfoURL != "" {
		t.Errorf("expected no info URL, got %q", record.InfoURL)
	}
	if len(record.Description) != 2 || record.Description[0] != "RIPE Network Coordination Centre" {
		t.Errorf("unexpected description: %v", record.Description)
	}
}

func TestDedupeLines_KeepsFirstOccurrence(t *testing.T) {
	got := dedupeLines([]string{"b", "a", "b", "c", "a"})

	if strings.Join(got, ",") != "b,a,c" {
		t.Errorf("expected [b a c], got %v", got)
	}
	if dedupeLines(nil) != nil {
		t.Error("expected nil for no lines")
	}
}

func TestParseWhoisResponse_NoEntities(t *testing.T) {
	_, err := parseWhoisResponse("% no entries found\n\ninetnum: 10.0.0.0 - 10.255.255.255\n")

	if !errors.Is(err, ErrNoEntities) {
		t.Errorf("expected ErrNoEntities, got %v", err)
	}
}

func TestReferral(t *testing.T) {
	tests := map[string]string{
		"refer:        whois.arin.net\n":                    "whois.arin.net",
		"% IANA\nwhois: whois.ripe.net\n":                   "whois.ripe.net",
		"ReferralServer:  whois://whois.lacnic.net\n":       "whois.lacnic.net",
		"ReferralServer:  rwhois://rwhois.example.net:4321": "rwhois.example.net:4321",
		"inetnum: 8.0.0.0 - 8.255.255.255\n":                "",
	}

	for raw, expected := range tests {
		if got := referral(raw); got != expected {
			t.Errorf("%q: expected %q, got %q", raw, expected, got)
		}
	}
}

func TestQueryFor_ARINUsesNetworkFlag(t *testing.T) {
	if q := queryFor("whois.arin.net:43", "8.8.8.8"); q != "n + 8.8.8.8" {
		t.Errorf("expected ARIN flag, got %q", q)
	}
	if q := queryFor("whois.ripe.net:43", "193.0.0.1"); q != "193.0.0.1" {
		t.Errorf("expected bare query, got %q", q)
	}
}

// fakeWhoisServer answers each connection with the response for the query
// line it receives.
func fakeWhoisServer(t *testing.T, answer func(query string) string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				_, _ = c.Write([]byte(answer(strings.TrimSpace(line))))
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestWhoisRegistry_Lookup_FollowsReferral(t *testing.T) {
	rir := fakeWhoisServer(t, func(query string) string {
		if query != "193.0.0.1" {
			return "% unexpected query\n"
		}
		return ripeResponse
	})
	root := fakeWhoisServer(t, func(query string) string {
		return "% IANA WHOIS server\nrefer:        " + rir + "\n\ninetnum:      193.0.0.0 - 193.255.255.255\n"
	})

	w := NewWhoisRegistry(root)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := w.Lookup(ctx, netip.MustParseAddr("193.0.0.1"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EntityName != "RIPE-NCC" {
		t.Errorf("expected referred answer, got %+v", record)
	}
}

func TestWhoisRegistry_Lookup_ConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	w := NewWhoisRegistry(addr)

	_, err = w.Lookup(context.Background(), netip.MustParseAddr("8.8.8.8"))

	var whoisErr *WhoisError
	if !errors.As(err, &whoisErr) {
		t.Fatalf("expected WhoisError, got %v", err)
	}
	if whoisErr.Server != addr {
		t.Errorf("expected server %s, got %s", addr, whoisErr.Server)
	}
}

func TestNewWhoisRegistry_DefaultsToIANA(t *testing.T) {
	w := NewWhoisRegistry("")

	if w.rootServer != "whois.iana.org:43" {
		t.Errorf("expected whois.iana.org:43, got %q", w.rootServer)
	}
}
