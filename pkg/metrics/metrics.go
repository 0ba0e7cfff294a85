// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup kinds.
const (
	LookupForward  = "forward"
	LookupReverse  = "reverse"
	LookupRegistry = "registry"
	LookupGeo      = "geo"
)

// Lookup outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netecho_request_duration_seconds",
			Help:    "Time taken to answer echo requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netecho_requests_total",
			Help: "Total number of echo requests",
		},
		[]string{"route", "status"},
	)

	lookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netecho_lookup_duration_seconds",
			Help:    "Time taken for DNS, registry and GeoIP lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(requestDuration, requestTotal, lookupDuration)
}

// ObserveRequest records one answered HTTP request.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	requestDuration.WithLabelValues(route, code).Observe(elapsed.Seconds())
	requestTotal.WithLabelValues(route, code).Inc()
}

// ObserveLookup records one lookup that started at start.
func ObserveLookup(kind, outcome string, start time.Time) {
	lookupDuration.WithLabelValues(kind, outcome).Observe(time.Since(start).Seconds())
}
