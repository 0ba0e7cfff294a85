package introspect

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vit0-9/netecho/models"
	"github.com/vit0-9/netecho/pkg/metrics"
	"github.com/vit0-9/netecho/pkg/utils"
	"github.com/vit0-9/netecho/pkg/utils/domain"
)

// Options tune a single assembly.
type Options struct {
	OmitHTTPInfo bool
}

// Dependencies are the collaborators of an Assembler. Nil lookups are
// replaced with disabled or system defaults by NewAssembler.
type Dependencies struct {
	Overrides *utils.OverrideResolver
	Resolver  *utils.AddressResolver
	RDNS      *utils.RDNSLookup
	Registry  *domain.Enricher
	Geo       *utils.GeoLookup
	FunFacts  *utils.FunFactGenerator
}

// Assembler builds RequestInfo values. It is safe for concurrent use.
type Assembler struct {
	overrides *utils.OverrideResolver
	resolver  *utils.AddressResolver
	rdns      *utils.RDNSLookup
	registry  *domain.Enricher
	geo       *utils.GeoLookup
	facts     *utils.FunFactGenerator
}

func NewAssembler(deps Dependencies) *Assembler {
	a := &Assembler{
		overrides: deps.Overrides,
		resolver:  deps.Resolver,
		rdns:      deps.RDNS,
		registry:  deps.Registry,
		geo:       deps.Geo,
		facts:     deps.FunFacts,
	}
	if a.overrides == nil {
		a.overrides = utils.NewOverrideResolver(utils.OverrideHeaders{}, nil)
	}
	if a.resolver == nil {
		a.resolver = utils.NewAddressResolver(nil, 0)
	}
	if a.rdns == nil {
		a.rdns = utils.NewRDNSLookup(nil, 0)
	}
	if a.facts == nil {
		a.facts = utils.NewFunFactGenerator(nil)
	}
	return a
}

// Validate applies the override headers without performing any lookup. It
// returns the same errors Assemble would for a malformed header.
func (a *Assembler) Validate(in Inbound) error {
	_, err := a.overrides.Resolve(in.Header, observed(in))
	return err
}

// Assemble builds the RequestInfo for in. It fails with
// *utils.MalformedOverrideError for a bad override header and with
// *utils.ResolutionError when the server address cannot be determined;
// every other lookup degrades to null fields.
func (a *Assembler) Assemble(ctx context.Context, in Inbound, opts Options) (*models.RequestInfo, error) {
	start := time.Now()

	eff, err := a.overrides.Resolve(in.Header, observed(in))
	if err != nil {
		return nil, err
	}

	client, err := utils.ParseIP(in.ClientIP)
	if err != nil {
		return nil, fmt.Errorf("%w: client ip %q: %v", ErrIncomplete, in.ClientIP, err)
	}
	// Dual-stack listeners report IPv4 peers in mapped form.
	client = client.Unmap()

	var (
		wg         sync.WaitGroup
		serverAddr netip.Addr
		serverErr  error
		serverPTR  string
		clientPTR  string
		registry   domain.RegistryRecord
		geo        utils.GeoData
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		serverAddr, serverErr = a.resolveServer(ctx, in, client)
		if serverErr == nil {
			serverPTR = a.rdns.Lookup(ctx, serverAddr)
		}
	}()
	go func() {
		defer wg.Done()
		clientPTR = a.rdns.Lookup(ctx, client)
	}()
	go func() {
		defer wg.Done()
		registry = a.registry.Lookup(ctx, client)
	}()
	go func() {
		defer wg.Done()
		geo = a.lookupGeo(client)
	}()
	wg.Wait()

	if serverErr != nil {
		return nil, serverErr
	}

	b := NewBuilder().
		Client(client).
		ClientReverseDNS(clientPTR).
		Registry(registry).
		Geo(geo).
		FunFact(a.facts.Generate(client)).
		Server(serverAddr, in.serverPort(), serverPTR).
		RequestHostname(in.hostname()).
		ClientPort(eff.ClientPort).
		Scheme(in.Scheme).
		RequestTime(eff.RequestTime)

	if !opts.OmitHTTPInfo {
		b.HTTP(a.httpInfo(in, eff))
	}

	info, err := b.Build()
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("client_ip", info.AddressInfo.IP).
		Dur("elapsed", time.Since(start)).
		Msg("request info assembled")
	return info, nil
}

// resolveServer resolves the requested host in the client's address family.
// Without a Host the accepting socket's address is used.
func (a *Assembler) resolveServer(ctx context.Context, in Inbound, client netip.Addr) (netip.Addr, error) {
	host := in.hostname()
	if host == "" && in.LocalAddr != "" {
		local, _ := splitHostPort(in.LocalAddr)
		if addr, err := utils.ParseIP(local); err == nil {
			return addr.Unmap(), nil
		}
	}
	return a.resolver.Resolve(ctx, host, utils.IPVersion(client))
}

func (a *Assembler) lookupGeo(addr netip.Addr) utils.GeoData {
	start := time.Now()
	if !a.geo.Enabled() || !utils.IsGloballyRoutable(addr) {
		return utils.GeoData{}
	}

	data, err := a.geo.Lookup(addr)
	switch {
	case err != nil:
		metrics.ObserveLookup(metrics.LookupGeo, metrics.OutcomeError, start)
		log.Warn().Err(err).Str("ip", addr.String()).Msg("GeoIP lookup failed")
	case data.IsEmpty():
		metrics.ObserveLookup(metrics.LookupGeo, metrics.OutcomeNotFound, start)
	default:
		metrics.ObserveLookup(metrics.LookupGeo, metrics.OutcomeHit, start)
	}
	return data
}

func (a *Assembler) httpInfo(in Inbound, eff utils.Overrides) *models.HTTPInfo {
	info := &models.HTTPInfo{
		Method:            in.Method,
		HTTPVersion:       eff.HTTPVersion,
		Headers:           exposedHeaders(in.Header, in.Host, a.overrides.IsOverrideHeader),
		Body:              string(in.Body),
		IsSecure:          in.Scheme == "https",
		TransportProtocol: eff.TransportProtocol,
		URL:               models.SafeURLString(in.fullURL()),
		TLS:               domain.DescribeTLS(in.TLS),
	}
	if in.URL != nil {
		info.Path = in.URL.Path
		info.Query = in.URL.RawQuery
	}
	return info
}

func observed(in Inbound) utils.Observed {
	return utils.Observed{
		ClientPort:  in.ClientPort,
		HTTPVersion: utils.HTTPVersion(in.ProtoMajor, in.ProtoMinor),
	}
}

// exposedHeaders lower-cases header names and joins repeated values with
// ", ". The Host header, which net/http keeps out of the map, is added back;
// override headers are dropped.
func exposedHeaders(header http.Header, host string, isOverride func(string) bool) map[string]string {
	out := make(map[string]string, len(header)+1)
	for name, values := range header {
		if isOverride(name) {
			continue
		}
		key := strings.ToLower(name)
		if prev, ok := out[key]; ok {
			values = append([]string{prev}, values...)
		}
		out[key] = strings.Join(values, ", ")
	}
	if host != "" {
		out["host"] = host
	}
	return out
}

