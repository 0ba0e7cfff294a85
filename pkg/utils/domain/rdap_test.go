package domain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openrdap/rdap"
)

const googleNetworkJSON = `{
  "objectClassName": "ip network",
  "handle": "NET-8-8-8-0-2",
  "startAddress": "8.8.8.0",
  "endAddress": "8.8.8.255",
  "ipVersion": "v4",
  "name": "GOGL",
  "type": "DIRECT ALLOCATION",
  "country": "US",
  "links": [
    {"value": "https://rdap.arin.net/registry/ip/8.8.8.8", "rel": "alternate", "href": "https://whois.arin.net/rest/net/NET-8-8-8-0-2"},
    {"value": "https://rdap.arin.net/registry/ip/8.8.8.8", "rel": "self", "href": "https://rdap.arin.net/registry/ip/8.8.8.0"}
  ],
  "remarks": [
    {"title": "Registration Comments", "description": ["Google public DNS", "  "]}
  ],
  "entities": [
    {
      "objectClassName": "entity",
      "handle": "ABUSE5250-ARIN",
      "roles": ["abuse"],
      "vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "Abuse"]]]
    },
    {
      "objectClassName": "entity",
      "handle": "GOGL",
      "roles": ["registrant"],
      "vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "Google LLC"], ["kind", {}, "text", "org"]]]
    }
  ]
}`

func mustVCard(t *testing.T, name string) *rdap.VCard {
	t.Helper()
	card, err := rdap.NewVCard([]byte(`["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "` + name + `"]]]`))
	if err != nil {
		t.Fatalf("building vcard: %v", err)
	}
	return card
}

func TestRecordFromNetwork_MapsFields(t *testing.T) {
	n := &rdap.IPNetwork{
		Name:    "RIPE-NCC-HM-MNT",
		Country: "NL",
		Links: []rdap.Link{
			{Rel: "related", Href: "https://example.net/other"},
			{Rel: "self", Href: "https://rdap.db.ripe.net/ip/193.0.0.0/21"},
		},
		Remarks: []rdap.Remark{
			{Description: []string{"RIPE Network Coordination Centre"}},
			{Description: []string{"Amsterdam, Netherlands"}},
		},
		Entities: []rdap.Entity{
			{Roles: []string{"technical"}, VCard: mustVCard(t, "Ops")},
			{Roles: []string{"Registrant"}, VCard: mustVCard(t, "RIPE NCC")},
		},
	}

	record, err := recordFromNetwork(n)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.InfoURL != "https://rdap.db.ripe.net/ip/193.0.0.0/21" {
		t.Errorf("expected self link, got %q", record.InfoURL)
	}
	if record.Registrant != "RIPE NCC" {
		t.Errorf("expected registrant 'RIPE NCC', got %q", record.Registrant)
	}
	if record.EntityName != "RIPE-NCC-HM-MNT" || record.Country != "NL" {
		t.Errorf("unexpected name/country: %q %q", record.EntityName, record.Country)
	}
	if len(record.Description) != 2 || record.Description[1] != "Amsterdam, Netherlands" {
		t.Errorf("unexpected description: %v", record.Description)
	}
}

func TestRecordFromNetwork_FallsBackToFirstNamedEntity(t *testing.T) {
	n := &rdap.IPNetwork{
		Links: []rdap.Link{{Rel: "alternate", Href: "https://example.net/a"}},
		Entities: []rdap.Entity{
			{Roles: []string{"registrant"}},
			{Roles: []string{"administrative"}, VCard: mustVCard(t, "Example Org")},
		},
	}

	record, err := recordFromNetwork(n)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Registrant != "Example Org" {
		t.Errorf("expected fallback registrant, got %q", record.Registrant)
	}
	if record.InfoURL != "https://example.net/a" {
		t.Errorf("expected first link, got %q", record.InfoURL)
	}
}

func TestRecordFromNetwork_NoNamedEntityLeavesRegistrantEmpty(t *testing.T) {
	n := &rdap.IPNetwork{Name: "NET", Entities: []rdap.Entity{{Handle: "X"}}}

	record, err := recordFromNetwork(n)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Registrant != "" {
		t.Errorf("expected empty registrant, got %q", record.Registrant)
	}
}

func TestRecordFromNetwork_NoEntities(t *testing.T) {
	_, err := recordFromNetwork(&rdap.IPNetwork{Name: "NET", Country: "US"})

	if !errors.Is(err, ErrNoEntities) {
		t.Errorf("expected ErrNoEntities, got %v", err)
	}
}

func TestRDAPRegistry_Lookup_QueriesConfiguredServer(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/rdap+json")
		_, _ = w.Write([]byte(googleNetworkJSON))
	}))
	defer srv.Close()

	reg, err := NewRDAPRegistry(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := reg.Lookup(ctx, netip.MustParseAddr("8.8.8.8"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotPath, "8.8.8.8") {
		t.Errorf("expected query for 8.8.8.8, got path %q", gotPath)
	}
	if record.Registrant != "Google LLC" {
		t.Errorf("expected registrant 'Google LLC', got %q", record.Registrant)
	}
	if record.InfoURL != "https://rdap.arin.net/registry/ip/8.8.8.0" {
		t.Errorf("expected self link, got %q", record.InfoURL)
	}
	if record.EntityName != "GOGL" || record.Country != "US" {
		t.Errorf("unexpected name/country: %q %q", record.EntityName, record.Country)
	}
	if len(record.Description) != 1 || record.Description[0] != "Google public DNS" {
		t.Errorf("unexpected description: %v", record.Description)
	}
}

func TestRDAPRegistry_Lookup_NotFoundIsNoEntities(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	reg, err := NewRDAPRegistry(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = reg.Lookup(context.Background(), netip.MustParseAddr("8.8.8.8"))

	if !errors.Is(err, ErrNoEntities) {
		t.Errorf("expected ErrNoEntities, got %v", err)
	}
}

func TestRDAPRegistry_Lookup_RunsConcurrently(t *testing.T) {
	const lookups = 4
	var (
		inFlight atomic.Int32
		once     sync.Once
		all      = make(chan struct{})
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight.Add(1) == lookups {
			once.Do(func() { close(all) })
		}
		select {
		case <-all:
		case <-time.After(2 * time.Second):
			http.Error(w, "lookups did not overlap", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/rdap+json")
		_, _ = w.Write([]byte(googleNetworkJSON))
	}))
	defer srv.Close()

	reg, err := NewRDAPRegistry(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, lookups)
	for range lookups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Lookup(context.Background(), netip.MustParseAddr("8.8.8.8")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

// newBootstrapServer serves IANA-style bootstrap files under /bootstrap/
// mapping 8.0.0.0/8 to a failing server followed by a working one.
func newBootstrapServer(t *testing.T, ipv4Fetches, ipv6Fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap/ipv4.json", func(w http.ResponseWriter, r *http.Request) {
		ipv4Fetches.Add(1)
		_, _ = w.Write([]byte(`{"version":"1.0","publication":"2024-01-01T00:00:00Z","services":[` +
			`[["8.0.0.0/8"],["` + srv.URL + `/broken/","` + srv.URL + `/rdap/"]]]}`))
	})
	mux.HandleFunc("/bootstrap/ipv6.json", func(w http.ResponseWriter, r *http.Request) {
		ipv6Fetches.Add(1)
		_, _ = w.Write([]byte(`{"version":"1.0","publication":"2024-01-01T00:00:00Z","services":[]}`))
	})
	mux.HandleFunc("/broken/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	mux.HandleFunc("/rdap/ip/8.8.8.8", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		_, _ = w.Write([]byte(googleNetworkJSON))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newBootstrappedRegistry(t *testing.T, srv *httptest.Server) *RDAPRegistry {
	t.Helper()
	reg, err := NewRDAPRegistry(srv.Client(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := url.Parse(srv.URL + "/bootstrap/")
	reg.bootstrap.BaseURL = base
	return reg
}

func TestRDAPRegistry_Lookup_BootstrapsAndFallsBack(t *testing.T) {
	var ipv4Fetches, ipv6Fetches atomic.Int32
	reg := newBootstrappedRegistry(t, newBootstrapServer(t, &ipv4Fetches, &ipv6Fetches))

	for range 2 {
		record, err := reg.Lookup(context.Background(), netip.MustParseAddr("8.8.8.8"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record.Registrant != "Google LLC" {
			t.Errorf("expected registrant 'Google LLC', got %q", record.Registrant)
		}
	}
	if n := ipv4Fetches.Load(); n != 1 {
		t.Errorf("expected bootstrap file to be fetched once, got %d", n)
	}
}

func TestRDAPRegistry_Lookup_NoResponsibleServer(t *testing.T) {
	var ipv4Fetches, ipv6Fetches atomic.Int32
	reg := newBootstrappedRegistry(t, newBootstrapServer(t, &ipv4Fetches, &ipv6Fetches))

	_, err := reg.Lookup(context.Background(), netip.MustParseAddr("2001:4860:4860::8888"))

	if err == nil || errors.Is(err, ErrNoEntities) {
		t.Errorf("expected bootstrap error, got %v", err)
	}
	if n := ipv6Fetches.Load(); n != 1 {
		t.Errorf("expected IPv6 bootstrap file to be fetched, got %d fetches", n)
	}
}

func TestRDAPRegistry_Preload(t *testing.T) {
	var ipv4Fetches, ipv6Fetches atomic.Int32
	reg := newBootstrappedRegistry(t, newBootstrapServer(t, &ipv4Fetches, &ipv6Fetches))

	if err := reg.Preload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Lookup(context.Background(), netip.MustParseAddr("8.8.8.8")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ipv4Fetches.Load() != 1 || ipv6Fetches.Load() != 1 {
		t.Errorf("expected one fetch per file, got ipv4=%d ipv6=%d", ipv4Fetches.Load(), ipv6Fetches.Load())
	}
}

func TestRDAPRegistry_Preload_SkippedWithConfiguredServer(t *testing.T) {
	reg, err := NewRDAPRegistry(nil, "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := reg.Preload(context.Background()); err != nil {
		t.Errorf("expected no download with a configured server, got %v", err)
	}
}

func TestNewRDAPRegistry_RejectsBadServer(t *testing.T) {
	if _, err := NewRDAPRegistry(nil, "rdap.example.net"); err == nil {
		t.Error("expected error for server without scheme")
	}
}
