package utils

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
)

// nonGlobalPrefixes lists the special-purpose ranges that are not globally
// routable on top of what netip classifies as private, loopback, link-local
// or multicast.
var nonGlobalPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/23"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// ParseIP parses an IP literal, accepting brackets around IPv6 and dropping
// any zone. IPv4-mapped IPv6 addresses keep their mapped form.
func ParseIP(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.WithZone(""), nil
}

// IPVersion returns 4 or 6.
func IPVersion(addr netip.Addr) int {
	if addr.Unmap().Is4() {
		return 4
	}
	return 6
}

// IsGloballyRoutable reports whether addr is outside every private, loopback,
// link-local, multicast and reserved range.
func IsGloballyRoutable(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, p := range nonGlobalPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// ReversePointer returns the in-addr.arpa / ip6.arpa name of addr without
// the trailing dot.
func ReversePointer(addr netip.Addr) string {
	arpa, err := dns.ReverseAddr(addr.Unmap().String())
	if err != nil {
		// dns.ReverseAddr only fails on unparsable input
		return ""
	}
	return strings.TrimSuffix(arpa, ".")
}

// GeoData is the result of a GeoIP lookup.
type GeoData struct {
	CountryCode    string
	CountryName    string
	CityName       string
	TimeZone       string
	ASN            uint
	ASOrganization string
}

// IsEmpty returns true if no database produced any data.
func (g GeoData) IsEmpty() bool {
	return g == GeoData{}
}

// GeoLookup reads the MaxMind City and ASN databases. Either reader may be
// missing; a GeoLookup with neither is valid and always returns empty data.
type GeoLookup struct {
	cityDB *geoip2.Reader
	asnDB  *geoip2.Reader
}

// OpenGeoLookup opens the databases at the given paths. Empty paths disable
// the corresponding lookup. A database that fails to open is logged and
// skipped.
func OpenGeoLookup(cityDBPath, asnDBPath string) *GeoLookup {
	g := &GeoLookup{}

	if cityDBPath != "" {
		db, err := geoip2.Open(cityDBPath)
		if err != nil {
			log.Error().Err(err).Str("path", cityDBPath).Msg("could not open GeoLite2-City database, city lookups disabled")
		} else {
			g.cityDB = db
			log.Info().Str("path", cityDBPath).Msg("loaded GeoLite2-City database")
		}
	} else {
		log.Debug().Msg("city MMDB path not provided, city lookups disabled")
	}

	if asnDBPath != "" {
		db, err := geoip2.Open(asnDBPath)
		if err != nil {
			log.Error().Err(err).Str("path", asnDBPath).Msg("could not open GeoLite2-ASN database, ASN lookups disabled")
		} else {
			g.asnDB = db
			log.Info().Str("path", asnDBPath).Msg("loaded GeoLite2-ASN database")
		}
	} else {
		log.Debug().Msg("ASN MMDB path not provided, ASN lookups disabled")
	}

	return g
}

// Enabled reports whether at least one database is loaded.
func (g *GeoLookup) Enabled() bool {
	return g != nil && (g.cityDB != nil || g.asnDB != nil)
}

// Lookup returns the GeoIP data for addr. Errors from the individual
// databases are joined; partial data is still returned.
func (g *GeoLookup) Lookup(addr netip.Addr) (GeoData, error) {
	var data GeoData
	if !g.Enabled() {
		return data, nil
	}

	ip := net.IP(addr.Unmap().AsSlice())
	var errs []error

	if g.cityDB != nil {
		city, err := g.cityDB.City(ip)
		if err != nil {
			errs = append(errs, fmt.Errorf("city lookup: %w", err))
		} else if city != nil {
			data.CountryCode = city.Country.IsoCode
			data.CountryName = city.Country.Names["en"]
			data.CityName = city.City.Names["en"]
			data.TimeZone = city.Location.TimeZone
		}
	}

	if g.asnDB != nil {
		asn, err := g.asnDB.ASN(ip)
		if err != nil {
			errs = append(errs, fmt.Errorf("ASN lookup: %w", err))
		} else if asn != nil {
			data.ASN = asn.AutonomousSystemNumber
			data.ASOrganization = asn.AutonomousSystemOrganization
		}
	}

	return data, errors.Join(errs...)
}

// Close closes the loaded databases.
func (g *GeoLookup) Close() {
	if g == nil {
		return
	}
	if g.cityDB != nil {
		if err := g.cityDB.Close(); err != nil {
			log.Error().Err(err).Msg("error closing GeoLite2-City database")
		}
	}
	if g.asnDB != nil {
		if err := g.asnDB.Close(); err != nil {
			log.Error().Err(err).Msg("error closing GeoLite2-ASN database")
		}
	}
}
