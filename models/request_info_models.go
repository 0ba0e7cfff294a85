package models

import "time"

// RegistryInfo holds the registry (RDAP/WHOIS) fields of an address.
// Every field is null unless the address is globally routable and the
// registry returned it.
type RegistryInfo struct {
	InfoURL     *SafeURLString `json:"info_url"`
	Country     *string        `json:"country"`
	Registrant  *string        `json:"registrant"`
	EntityName  *string        `json:"entity_name"`
	Description []string       `json:"description"`
}

// GeoInfo is the MaxMind City/ASN view of an address.
type GeoInfo struct {
	CountryCode    string `json:"country_code,omitempty"`
	CountryName    string `json:"country_name,omitempty"`
	CityName       string `json:"city_name,omitempty"`
	TimeZone       string `json:"time_zone,omitempty"`
	ASN            uint   `json:"asn,omitempty"`
	ASOrganization string `json:"as_organization,omitempty"`
}

// AddressInfo describes the client address.
type AddressInfo struct {
	IP               string  `json:"ip"`
	IPVersion        int     `json:"ip_version"`
	ReverseDNS       *string `json:"reverse_dns"`
	ReverseDNSDomain *string `json:"reverse_dns_domain"`
	ReversePointer   string  `json:"reverse_pointer"`
	RegistryInfo
	Geo     *GeoInfo `json:"geo"`
	FunFact *string  `json:"fun_fact"`
}

// ServerInfo describes the address the request was sent to.
type ServerInfo struct {
	IP             string  `json:"ip"`
	IPVersion      int     `json:"ip_version"`
	Port           int     `json:"port"`
	ReverseDNS     *string `json:"reverse_dns"`
	ReversePointer string  `json:"reverse_pointer"`
}

// TLSInfo describes the inbound TLS connection, if any.
type TLSInfo struct {
	Version            string   `json:"version"`
	CipherSuite        string   `json:"cipher_suite"`
	ServerName         string   `json:"server_name,omitempty"`
	NegotiatedProtocol string   `json:"negotiated_protocol,omitempty"`
	PeerCertificates   []string `json:"peer_certificates,omitempty"`
}

// HTTPInfo is the HTTP-level view of the request.
type HTTPInfo struct {
	Method            string            `json:"method"`
	HTTPVersion       string            `json:"http_version"`
	Headers           map[string]string `json:"headers"`
	Body              string            `json:"body"`
	IsSecure          bool              `json:"is_secure"`
	TransportProtocol string            `json:"transport_protocol"`
	URL               SafeURLString     `json:"url"`
	Path              string            `json:"path"`
	Query             string            `json:"query"`
	TLS               *TLSInfo          `json:"tls"`
}

// RequestInfo is the response of the echo endpoints. Values are produced by
// introspect.Builder and must not be modified afterwards.
type RequestInfo struct {
	AddressInfo     AddressInfo `json:"address_info"`
	ServerInfo      *ServerInfo `json:"server_info"`
	HTTPInfo        *HTTPInfo   `json:"http_info,omitempty"`
	RequestHostname *string     `json:"request_hostname"`
	ClientPort      int         `json:"client_port"`
	Scheme          string      `json:"scheme"`
	RequestTime     time.Time   `json:"request_time"`
}

// EchoQuery binds the query parameters of the JSON endpoint.
type EchoQuery struct {
	OmitHTTPInfo bool `form:"omit_http_info"`
}
