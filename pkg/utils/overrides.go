package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTransportProtocol is used when no transport protocol header is sent.
const DefaultTransportProtocol = "tcp"

// OverrideHeaders names the request headers a trusted proxy uses to report
// values the server cannot observe itself.
type OverrideHeaders struct {
	ClientPort        string
	HTTPVersion       string
	TransportProtocol string
	RequestTime       string
}

// Names returns the configured header names, skipping empty ones.
func (h OverrideHeaders) Names() []string {
	var names []string
	for _, n := range []string{h.ClientPort, h.HTTPVersion, h.TransportProtocol, h.RequestTime} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// MalformedOverrideError means an override header was present but unusable.
type MalformedOverrideError struct {
	Header string
	Value  string
	Err    error
}

func (e *MalformedOverrideError) Error() string {
	return fmt.Sprintf("malformed %s header %q: %v", e.Header, e.Value, e.Err)
}

func (e *MalformedOverrideError) Unwrap() error {
	return e.Err
}

// Observed holds what the server saw on the connection.
type Observed struct {
	ClientPort  int
	HTTPVersion string
}

// Overrides are the effective values after applying the override headers.
type Overrides struct {
	ClientPort        int
	HTTPVersion       string
	TransportProtocol string
	RequestTime       time.Time
}

// OverrideResolver applies the override headers of a request.
type OverrideResolver struct {
	headers  OverrideHeaders
	location *time.Location
	now      func() time.Time
	strip    map[string]struct{}
}

// NewOverrideResolver creates a resolver for the given header names. Times
// are reported in loc (UTC if nil).
func NewOverrideResolver(headers OverrideHeaders, loc *time.Location) *OverrideResolver {
	if loc == nil {
		loc = time.UTC
	}
	strip := make(map[string]struct{})
	for _, n := range headers.Names() {
		strip[strings.ToLower(n)] = struct{}{}
	}
	return &OverrideResolver{
		headers:  headers,
		location: loc,
		now:      time.Now,
		strip:    strip,
	}
}

// WithClock returns a copy of r that uses now as the current time.
func (r *OverrideResolver) WithClock(now func() time.Time) *OverrideResolver {
	c := *r
	c.now = now
	return &c
}

// Location returns the zone request times are reported in.
func (r *OverrideResolver) Location() *time.Location {
	return r.location
}

// Resolve computes the effective values for a request. It fails only when
// the request time header is present and not an ISO-8601 timestamp.
func (r *OverrideResolver) Resolve(header http.Header, observed Observed) (Overrides, error) {
	out := Overrides{
		ClientPort:        observed.ClientPort,
		HTTPVersion:       observed.HTTPVersion,
		TransportProtocol: DefaultTransportProtocol,
	}

	// the socket port wins unless it is unknown
	if v := headerValue(header, r.headers.ClientPort); v != "" && observed.ClientPort == 0 {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			log.Debug().Str("header", r.headers.ClientPort).Str("value", v).Msg("ignoring invalid client port override")
		} else {
			out.ClientPort = port
		}
	}

	if v := headerValue(header, r.headers.HTTPVersion); v != "" {
		out.HTTPVersion = v
	}

	if v := headerValue(header, r.headers.TransportProtocol); v != "" {
		out.TransportProtocol = v
	}

	if v := headerValue(header, r.headers.RequestTime); v != "" {
		t, err := ParseISO8601(v, r.location)
		if err != nil {
			return Overrides{}, &MalformedOverrideError{Header: r.headers.RequestTime, Value: v, Err: err}
		}
		out.RequestTime = t.In(r.location)
	} else {
		out.RequestTime = r.now().In(r.location)
	}

	return out, nil
}

// IsOverrideHeader reports whether name is one of the configured override
// headers, ignoring case.
func (r *OverrideResolver) IsOverrideHeader(name string) bool {
	_, ok := r.strip[strings.ToLower(name)]
	return ok
}

func headerValue(header http.Header, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(header.Get(name))
}

// zonedLayouts carry their own offset; naiveLayouts are read in the
// configured zone. Fractional seconds are accepted by every layout.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// ParseISO8601 parses the ISO-8601 forms proxies commonly send.
func ParseISO8601(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp")
}

// HTTPVersion formats the protocol version the way the echo output reports
// it: "1.0", "1.1", "2", "3".
func HTTPVersion(major, minor int) string {
	if major >= 2 && minor == 0 {
		return strconv.Itoa(major)
	}
	return fmt.Sprintf("%d.%d", major, minor)
}
