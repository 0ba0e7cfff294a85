// Package introspect turns an inbound HTTP request into a models.RequestInfo.
package introspect

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Inbound is the transport-level snapshot of a request, independent of the
// HTTP framework that received it.
type Inbound struct {
	// ClientIP is the effective client address (after trusted proxy
	// headers); ClientPort is 0 when it is not known.
	ClientIP   string
	ClientPort int
	// LocalAddr is the "ip:port" of the accepting socket, if known.
	LocalAddr string
	Host      string
	Scheme    string

	Method     string
	ProtoMajor int
	ProtoMinor int
	Header     http.Header
	Body       []byte
	TLS        *tls.ConnectionState
	URL        *url.URL
}

// FromRequest captures r. clientIP is the address the router trusts as the
// client (it differs from the socket peer when a trusted proxy forwarded the
// request). The socket port and scheme are only taken from the connection
// when the peer is the client itself; behind a proxy the port is unknown and
// X-Forwarded-Proto is honoured.
func FromRequest(r *http.Request, clientIP string, body []byte) Inbound {
	remoteHost, remotePort := splitHostPort(r.RemoteAddr)
	if clientIP == "" {
		clientIP = remoteHost
	}
	behindProxy := clientIP != remoteHost

	in := Inbound{
		ClientIP:   clientIP,
		Host:       r.Host,
		Scheme:     "http",
		Method:     r.Method,
		ProtoMajor: r.ProtoMajor,
		ProtoMinor: r.ProtoMinor,
		Header:     r.Header,
		Body:       body,
		TLS:        r.TLS,
		URL:        r.URL,
	}

	if r.TLS != nil {
		in.Scheme = "https"
	}
	if behindProxy {
		if proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto == "http" || proto == "https" {
			in.Scheme = proto
		}
	} else {
		in.ClientPort = remotePort
	}

	if local, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok && local != nil {
		in.LocalAddr = local.String()
	}

	return in
}

// splitHostPort splits "host:port", returning port 0 when it is missing or
// not numeric.
func splitHostPort(hostport string) (string, int) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), 0
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return host, 0
	}
	return host, p
}

// hostname returns the Host without port or brackets.
func (in Inbound) hostname() string {
	host, _ := splitHostPort(in.Host)
	return host
}

// serverPort returns the port the client addressed: the Host port, else the
// accepting socket's port, else the scheme default.
func (in Inbound) serverPort() int {
	if _, p := splitHostPort(in.Host); p != 0 {
		return p
	}
	if _, p := splitHostPort(in.LocalAddr); p != 0 {
		return p
	}
	if in.Scheme == "https" {
		return 443
	}
	return 80
}

// fullURL rebuilds the absolute URL the client requested.
func (in Inbound) fullURL() string {
	if in.URL == nil {
		return ""
	}
	u := *in.URL
	if u.Scheme == "" {
		u.Scheme = in.Scheme
	}
	if u.Host == "" {
		u.Host = in.Host
	}
	return u.String()
}
