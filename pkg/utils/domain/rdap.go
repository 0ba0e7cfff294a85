package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/openrdap/rdap"
	"github.com/openrdap/rdap/bootstrap"
)

// RDAPRegistry looks addresses up over RDAP. By default the server is found
// through the IANA bootstrap registry.
type RDAPRegistry struct {
	httpClient *http.Client
	server     *url.URL

	// bootstrap keeps its registries in an unguarded map.
	bootstrapMu sync.Mutex
	bootstrap   *bootstrap.Client
}

// NewRDAPRegistry creates an RDAP backend using httpClient for both bootstrap
// and queries. A non-empty server (e.g. "https://rdap.db.ripe.net") skips
// bootstrapping and sends every query there.
func NewRDAPRegistry(httpClient *http.Client, server string) (*RDAPRegistry, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	r := &RDAPRegistry{
		httpClient: httpClient,
		bootstrap:  &bootstrap.Client{HTTP: httpClient},
	}

	if server != "" {
		u, err := url.Parse(server)
		if err != nil {
			return nil, fmt.Errorf("invalid RDAP server %q: %w", server, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid RDAP server %q: scheme and host required", server)
		}
		r.server = u
	}

	return r, nil
}

// Preload downloads the IPv4 and IPv6 bootstrap registries so the first
// lookups do not wait for them. It does nothing when a server is configured.
func (r *RDAPRegistry) Preload(ctx context.Context) error {
	if r.server != nil {
		return nil
	}

	r.bootstrapMu.Lock()
	defer r.bootstrapMu.Unlock()
	for _, registry := range []bootstrap.RegistryType{bootstrap.IPv4, bootstrap.IPv6} {
		if err := r.bootstrap.DownloadWithContext(ctx, registry); err != nil {
			return fmt.Errorf("downloading %s: %w", registry.Filename(), err)
		}
	}
	return nil
}

// servers returns the RDAP base URLs responsible for addr.
func (r *RDAPRegistry) servers(ctx context.Context, addr netip.Addr) ([]*url.URL, error) {
	if r.server != nil {
		return []*url.URL{r.server}, nil
	}

	question := &bootstrap.Question{RegistryType: bootstrap.IPv4, Query: addr.String()}
	if addr.Is6() {
		question.RegistryType = bootstrap.IPv6
	}

	r.bootstrapMu.Lock()
	answer, err := r.bootstrap.Lookup(question.WithContext(ctx))
	r.bootstrapMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("rdap bootstrap for %s: %w", addr, err)
	}
	if len(answer.URLs) == 0 {
		return nil, fmt.Errorf("rdap bootstrap for %s: no server responsible", addr)
	}
	return answer.URLs, nil
}

// Lookup implements Registry. Servers are tried in bootstrap order until one
// answers or reports that the address is not registered.
func (r *RDAPRegistry) Lookup(ctx context.Context, addr netip.Addr) (*RegistryRecord, error) {
	addr = addr.Unmap()
	servers, err := r.servers(ctx, addr)
	if err != nil {
		return nil, err
	}

	client := &rdap.Client{HTTP: r.httpClient}
	req := rdap.NewIPRequest(net.IP(addr.AsSlice())).WithContext(ctx)

	var lastErr error
	for _, server := range servers {
		// Request.URL writes to the server URL it is given.
		u := *server
		resp, err := client.Do(req.WithServer(&u))
		if err == nil {
			network, ok := resp.Object.(*rdap.IPNetwork)
			if !ok {
				return nil, fmt.Errorf("rdap query for %s: unexpected object %T", addr, resp.Object)
			}
			return recordFromNetwork(network)
		}

		var clientErr *rdap.ClientError
		if errors.As(err, &clientErr) && clientErr.Type == rdap.ObjectDoesNotExist {
			return nil, ErrNoEntities
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("rdap query for %s: %w", addr, lastErr)
}

// recordFromNetwork maps an RDAP IP network object to a RegistryRecord.
func recordFromNetwork(n *rdap.IPNetwork) (*RegistryRecord, error) {
	if n == nil || len(n.Entities) == 0 {
		return nil, ErrNoEntities
	}

	record := &RegistryRecord{
		InfoURL:    selfLink(n.Links),
		Country:    strings.TrimSpace(n.Country),
		EntityName: strings.TrimSpace(n.Name),
		Registrant: registrantName(n.Entities),
	}

	for _, remark := range n.Remarks {
		for _, line := range remark.Description {
			if line = strings.TrimSpace(line); line != "" {
				record.Description = append(record.Description, line)
			}
		}
	}

	return record, nil
}

// selfLink returns the href of the "self" link, or of the first link when
// there is none.
func selfLink(links []rdap.Link) string {
	for _, l := range links {
		if strings.EqualFold(l.Rel, "self") && l.Href != "" {
			return l.Href
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// registrantName prefers the vCard name of an entity with the registrant
// role and falls back to the first named entity.
func registrantName(entities []rdap.Entity) string {
	for _, e := range entities {
		if !slices.ContainsFunc(e.Roles, func(role string) bool { return strings.EqualFold(role, "registrant") }) {
			continue
		}
		if name := vcardName(e); name != "" {
			return name
		}
	}
	for _, e := range entities {
		if name := vcardName(e); name != "" {
			return name
		}
	}
	return ""
}

func vcardName(e rdap.Entity) string {
	if e.VCard == nil {
		return ""
	}
	return strings.TrimSpace(e.VCard.Name())
}
