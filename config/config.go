package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. NETECHO_ADDR.
const EnvPrefix = "NETECHO"

// Registry backends.
const (
	RegistryRDAP  = "rdap"
	RegistryWhois = "whois"
	RegistryNone  = "none"
)

// Config keys. The environment variable is EnvPrefix + "_" + upper-cased key.
const (
	KeyAddr                    = "addr"
	KeyAppVersion              = "app_version"
	KeyLogLevel                = "log_level"
	KeyLogPretty               = "log_pretty"
	KeyClientPortHeader        = "client_port_header"
	KeyHTTPVersionHeader       = "http_version_header"
	KeyTransportProtocolHeader = "transport_protocol_header"
	KeyRequestTimeHeader       = "request_time_header"
	KeyTimezone                = "timezone"
	KeyDNSServer               = "dns_server"
	KeyDNSTimeout              = "dns_timeout"
	KeyRegistryBackend         = "registry_backend"
	KeyRegistryServer          = "registry_server"
	KeyRegistryTimeout         = "registry_timeout"
	KeyRegistryRate            = "registry_rate"
	KeyRegistryBurst           = "registry_burst"
	KeyMMDBCityPath            = "mmdb_city_path"
	KeyMMDBASNPath             = "mmdb_asn_path"
	KeyTrustedProxies          = "trusted_proxies"
	KeyTLSCertPath             = "tls_cert_path"
	KeyTLSKeyPath              = "tls_key_path"
	KeyMaxBodyBytes            = "max_body_bytes"
	KeyShutdownTimeout         = "shutdown_timeout"
)

var defaults = map[string]any{
	KeyAddr:                    ":8080",
	KeyAppVersion:              "local-dev",
	KeyLogLevel:                "info",
	KeyLogPretty:               false,
	KeyClientPortHeader:        "X-Client-Port",
	KeyHTTPVersionHeader:       "X-Http-Version",
	KeyTransportProtocolHeader: "X-Transport-Protocol",
	KeyRequestTimeHeader:       "X-Request-Time",
	KeyTimezone:                "Europe/Berlin",
	KeyDNSServer:               "",
	KeyDNSTimeout:              2 * time.Second,
	KeyRegistryBackend:         RegistryRDAP,
	KeyRegistryServer:          "",
	KeyRegistryTimeout:         3 * time.Second,
	KeyRegistryRate:            5.0,
	KeyRegistryBurst:           10,
	KeyMMDBCityPath:            "",
	KeyMMDBASNPath:             "",
	KeyTrustedProxies:          "",
	KeyTLSCertPath:             "",
	KeyTLSKeyPath:              "",
	KeyMaxBodyBytes:            int64(1 << 20),
	KeyShutdownTimeout:         10 * time.Second,
}

// Config is the validated, read-only configuration of the service.
type Config struct {
	Addr       string
	AppVersion string
	LogLevel   string
	LogPretty  bool

	ClientPortHeader        string
	HTTPVersionHeader       string
	TransportProtocolHeader string
	RequestTimeHeader       string

	Timezone string
	Location *time.Location

	DNSServer  string
	DNSTimeout time.Duration

	RegistryBackend string
	RegistryServer  string
	RegistryTimeout time.Duration
	RegistryRate    float64
	RegistryBurst   int

	MMDBCityPath string
	MMDBASNPath  string

	TrustedProxies []string

	TLSCertPath string
	TLSKeyPath  string

	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// TLSEnabled reports whether a certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertPath != "" && c.TLSKeyPath != ""
}

// NewViper returns a viper instance with every default registered and
// environment lookup enabled. Command line flags may be bound to it before
// calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// LoadEnvFile loads variables from path into the process environment without
// overriding variables that are already set. An empty path means ".env",
// which may be missing.
func LoadEnvFile(path string) error {
	optional := path == ""
	if optional {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not load env file %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Addr:       strings.TrimSpace(v.GetString(KeyAddr)),
		AppVersion: v.GetString(KeyAppVersion),
		LogLevel:   strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogPretty:  v.GetBool(KeyLogPretty),

		ClientPortHeader:        strings.TrimSpace(v.GetString(KeyClientPortHeader)),
		HTTPVersionHeader:       strings.TrimSpace(v.GetString(KeyHTTPVersionHeader)),
		TransportProtocolHeader: strings.TrimSpace(v.GetString(KeyTransportProtocolHeader)),
		RequestTimeHeader:       strings.TrimSpace(v.GetString(KeyRequestTimeHeader)),

		Timezone: strings.TrimSpace(v.GetString(KeyTimezone)),

		DNSServer:  strings.TrimSpace(v.GetString(KeyDNSServer)),
		DNSTimeout: v.GetDuration(KeyDNSTimeout),

		RegistryBackend: strings.ToLower(strings.TrimSpace(v.GetString(KeyRegistryBackend))),
		RegistryServer:  strings.TrimSpace(v.GetString(KeyRegistryServer)),
		RegistryTimeout: v.GetDuration(KeyRegistryTimeout),
		RegistryRate:    v.GetFloat64(KeyRegistryRate),
		RegistryBurst:   v.GetInt(KeyRegistryBurst),

		MMDBCityPath: v.GetString(KeyMMDBCityPath),
		MMDBASNPath:  v.GetString(KeyMMDBASNPath),

		TrustedProxies: splitList(v.GetString(KeyTrustedProxies)),

		TLSCertPath: v.GetString(KeyTLSCertPath),
		TLSKeyPath:  v.GetString(KeyTLSKeyPath),

		MaxBodyBytes:    v.GetInt64(KeyMaxBodyBytes),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	c.Location = loc

	headers := map[string]string{
		KeyClientPortHeader:        c.ClientPortHeader,
		KeyHTTPVersionHeader:       c.HTTPVersionHeader,
		KeyTransportProtocolHeader: c.TransportProtocolHeader,
		KeyRequestTimeHeader:       c.RequestTimeHeader,
	}
	seen := make(map[string]string)
	for key, name := range headers {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", key))
			continue
		}
		lower := strings.ToLower(name)
		if other, ok := seen[lower]; ok {
			errs = append(errs, fmt.Errorf("%s and %s name the same header %q", key, other, name))
		}
		seen[lower] = key
	}

	switch c.RegistryBackend {
	case RegistryRDAP, RegistryWhois, RegistryNone:
	default:
		errs = append(errs, fmt.Errorf("invalid registry backend %q (want %s, %s or %s)", c.RegistryBackend, RegistryRDAP, RegistryWhois, RegistryNone))
	}
	if c.RegistryRate <= 0 {
		errs = append(errs, fmt.Errorf("registry rate must be positive, got %v", c.RegistryRate))
	}
	if c.RegistryBurst < 1 {
		errs = append(errs, fmt.Errorf("registry burst must be at least 1, got %d", c.RegistryBurst))
	}
	if c.RegistryTimeout <= 0 || c.DNSTimeout <= 0 {
		errs = append(errs, errors.New("lookup timeouts must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if (c.TLSCertPath == "") != (c.TLSKeyPath == "") {
		errs = append(errs, errors.New("tls cert and key paths must be set together"))
	}

	return errors.Join(errs...)
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

