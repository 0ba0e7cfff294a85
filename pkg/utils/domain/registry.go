// Package domain holds the registry backends (RDAP and WHOIS) used to enrich
// client addresses, plus the description of inbound TLS connections.
package domain

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/vit0-9/netecho/pkg/metrics"
	"github.com/vit0-9/netecho/pkg/utils"
)

// ErrNoEntities is returned by backends when the registry answered without
// any registrant or entity data.
var ErrNoEntities = errors.New("registry response has no entities")

// RegistryRecord is the ownership data of the network an address belongs to.
// Empty strings mean the registry did not provide the field.
type RegistryRecord struct {
	InfoURL     string
	Country     string
	Registrant  string
	EntityName  string
	Description []string
}

// IsEmpty reports whether the record carries no data at all.
func (r RegistryRecord) IsEmpty() bool {
	return r.InfoURL == "" && r.Country == "" && r.Registrant == "" &&
		r.EntityName == "" && len(r.Description) == 0
}

// Registry looks up the registry record of an address.
type Registry interface {
	Lookup(ctx context.Context, addr netip.Addr) (*RegistryRecord, error)
}

// Enricher guards a Registry: only globally routable addresses are sent out,
// each call is bounded by a timeout and a process-wide rate limit, and every
// failure turns into an empty record.
type Enricher struct {
	registry Registry
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewEnricher wraps registry. A nil registry disables enrichment; a nil
// limiter means no rate limit.
func NewEnricher(registry Registry, limiter *rate.Limiter, timeout time.Duration) *Enricher {
	return &Enricher{registry: registry, limiter: limiter, timeout: timeout}
}

// Enabled reports whether a backend is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.registry != nil
}

// Lookup returns the registry record for addr, or an empty record when addr
// is not globally routable, no backend is configured or the lookup failed.
func (e *Enricher) Lookup(ctx context.Context, addr netip.Addr) RegistryRecord {
	start := time.Now()
	if !e.Enabled() || !utils.IsGloballyRoutable(addr) {
		metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeSkipped, start)
		return RegistryRecord{}
	}
	addr = addr.Unmap()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeSkipped, start)
			log.Warn().Err(err).Str("ip", addr.String()).Msg("registry lookup rate limited")
			return RegistryRecord{}
		}
	}

	record, err := e.registry.Lookup(ctx, addr)
	switch {
	case errors.Is(err, ErrNoEntities):
		metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeNotFound, start)
		log.Debug().Str("ip", addr.String()).Msg("registry returned no entities")
		return RegistryRecord{}
	case err != nil:
		metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeError, start)
		log.Warn().Err(err).Str("ip", addr.String()).Msg("registry lookup failed")
		return RegistryRecord{}
	case record == nil || record.IsEmpty():
		metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeNotFound, start)
		return RegistryRecord{}
	}

	metrics.ObserveLookup(metrics.LookupRegistry, metrics.OutcomeHit, start)
	return *record
}
