package introspect

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/vit0-9/netecho/models"
	"github.com/vit0-9/netecho/pkg/utils"
	"github.com/vit0-9/netecho/pkg/utils/domain"
)

// ErrIncomplete is wrapped by Build when a required field is missing.
var ErrIncomplete = errors.New("incomplete request info")

// Builder stages the fields of a RequestInfo. A Builder is used by a single
// goroutine and discarded after Build.
type Builder struct {
	info     models.RequestInfo
	client   netip.Addr
	registry domain.RegistryRecord
	geo      utils.GeoData
	server   *models.ServerInfo
	timeSet  bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Client(addr netip.Addr) *Builder {
	b.client = addr.Unmap()
	return b
}

func (b *Builder) ClientReverseDNS(hostname string) *Builder {
	b.info.AddressInfo.ReverseDNS = models.StringPtr(hostname)
	b.info.AddressInfo.ReverseDNSDomain = models.StringPtr(utils.RegistrableDomain(hostname))
	return b
}

func (b *Builder) Registry(record domain.RegistryRecord) *Builder {
	b.registry = record
	return b
}

func (b *Builder) Geo(data utils.GeoData) *Builder {
	b.geo = data
	return b
}

func (b *Builder) FunFact(fact string) *Builder {
	b.info.AddressInfo.FunFact = models.StringPtr(fact)
	return b
}

// Server sets the server address block. An invalid addr leaves it unset.
func (b *Builder) Server(addr netip.Addr, port int, reverseDNS string) *Builder {
	if !addr.IsValid() {
		b.server = nil
		return b
	}
	b.server = &models.ServerInfo{
		IP:             addr.String(),
		IPVersion:      utils.IPVersion(addr),
		Port:           port,
		ReverseDNS:     models.StringPtr(reverseDNS),
		ReversePointer: utils.ReversePointer(addr),
	}
	return b
}

func (b *Builder) HTTP(info *models.HTTPInfo) *Builder {
	b.info.HTTPInfo = info
	return b
}

func (b *Builder) RequestHostname(hostname string) *Builder {
	b.info.RequestHostname = models.StringPtr(hostname)
	return b
}

func (b *Builder) ClientPort(port int) *Builder {
	b.info.ClientPort = port
	return b
}

func (b *Builder) Scheme(scheme string) *Builder {
	b.info.Scheme = scheme
	return b
}

func (b *Builder) RequestTime(t time.Time) *Builder {
	b.info.RequestTime = t
	b.timeSet = true
	return b
}

// Build validates the staged fields and returns the finished value. Registry
// and geo data are dropped unless the client address is globally routable.
func (b *Builder) Build() (*models.RequestInfo, error) {
	switch {
	case !b.client.IsValid():
		return nil, fmt.Errorf("%w: client ip missing", ErrIncomplete)
	case b.info.Scheme == "":
		return nil, fmt.Errorf("%w: scheme missing", ErrIncomplete)
	case !b.timeSet:
		return nil, fmt.Errorf("%w: request time missing", ErrIncomplete)
	case b.info.ClientPort < 0 || b.info.ClientPort > 65535:
		return nil, fmt.Errorf("%w: client port %d out of range", ErrIncomplete, b.info.ClientPort)
	}

	info := b.info
	info.AddressInfo.IP = b.client.String()
	info.AddressInfo.IPVersion = utils.IPVersion(b.client)
	info.AddressInfo.ReversePointer = utils.ReversePointer(b.client)

	if utils.IsGloballyRoutable(b.client) {
		info.AddressInfo.RegistryInfo = models.RegistryInfo{
			InfoURL:     models.URLPtr(b.registry.InfoURL),
			Country:     models.StringPtr(b.registry.Country),
			Registrant:  models.StringPtr(b.registry.Registrant),
			EntityName:  models.StringPtr(b.registry.EntityName),
			Description: append([]string(nil), b.registry.Description...),
		}
		if !b.geo.IsEmpty() {
			info.AddressInfo.Geo = &models.GeoInfo{
				CountryCode:    b.geo.CountryCode,
				CountryName:    b.geo.CountryName,
				CityName:       b.geo.CityName,
				TimeZone:       b.geo.TimeZone,
				ASN:            b.geo.ASN,
				ASOrganization: b.geo.ASOrganization,
			}
		}
	}

	if b.server != nil {
		server := *b.server
		info.ServerInfo = &server
	}

	return &info, nil
}
