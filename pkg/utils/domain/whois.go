package domain

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"
)

// DefaultWhoisServer is asked first; it answers with a refer: line naming
// the RIR that holds the address.
const DefaultWhoisServer = "whois.iana.org"

const whoisPort = "43"

// maxWhoisResponse caps how much of a response is read.
const maxWhoisResponse = 256 << 10

type WhoisError struct {
	Query  string
	Server string
	Err    error
}

func (e *WhoisError) Error() string {
	return fmt.Sprintf("whois lookup failed for %s via %s: %v", e.Query, e.Server, e.Err)
}

func (e *WhoisError) Unwrap() error {
	return e.Err
}

// WhoisRegistry looks addresses up over the port 43 WHOIS protocol.
type WhoisRegistry struct {
	rootServer string
	dialer     *net.Dialer
}

// NewWhoisRegistry creates a WHOIS backend starting at rootServer ("host" or
// "host:port"). An empty rootServer means DefaultWhoisServer.
func NewWhoisRegistry(rootServer string) *WhoisRegistry {
	if rootServer == "" {
		rootServer = DefaultWhoisServer
	}
	return &WhoisRegistry{
		rootServer: withWhoisPort(rootServer),
		dialer:     &net.Dialer{Timeout: 5 * time.Second},
	}
}

// Lookup implements Registry. It follows a single refer: hop.
func (w *WhoisRegistry) Lookup(ctx context.Context, addr netip.Addr) (*RegistryRecord, error) {
	ip := addr.Unmap().String()

	server := w.rootServer
	raw, err := w.query(ctx, server, ip)
	if err != nil {
		return nil, err
	}

	if refer := referral(raw); refer != "" {
		server = withWhoisPort(refer)
		raw, err = w.query(ctx, server, queryFor(server, ip))
		if err != nil {
			return nil, err
		}
	}

	return parseWhoisResponse(raw)
}

// query sends one WHOIS query and reads the whole answer.
func (w *WhoisRegistry) query(ctx context.Context, server, query string) (string, error) {
	conn, err := w.dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return "", &WhoisError{Query: query, Server: server, Err: fmt.Errorf("connection failed: %w", err)}
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(15 * time.Second)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", &WhoisError{Query: query, Server: server, Err: err}
	}

	if _, err := conn.Write([]byte(query + "\r\n")); err != nil {
		return "", &WhoisError{Query: query, Server: server, Err: fmt.Errorf("write failed: %w", err)}
	}

	var response strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if response.Len() > maxWhoisResponse {
			break
		}
		response.WriteString(scanner.Text())
		response.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", &WhoisError{Query: query, Server: server, Err: fmt.Errorf("read failed: %w", err)}
	}

	if response.Len() == 0 {
		return "", &WhoisError{Query: query, Server: server, Err: fmt.Errorf("empty response from server")}
	}
	return response.String(), nil
}

// queryFor adapts the query to servers that need a flag to return network
// records only.
func queryFor(server, ip string) string {
	host, _, _ := net.SplitHostPort(server)
	if strings.EqualFold(host, "whois.arin.net") {
		return "n + " + ip
	}
	return ip
}

func withWhoisPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), whoisPort)
}

// whoisField splits "Key: value" lines. Comment lines and lines without a
// colon yield ok == false.
func whoisField(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

// referral returns the server named by the first refer: / ReferralServer:
// line, without any whois:// scheme.
func referral(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := whoisField(line)
		if !ok || value == "" {
			continue
		}
		if key == "refer" || key == "referralserver" || key == "whois" {
			value = strings.TrimPrefix(value, "whois://")
			value = strings.TrimPrefix(value, "rwhois://")
			return strings.TrimSuffix(value, "/")
		}
	}
	return ""
}

// parseWhoisResponse extracts the registry fields from an ARIN-, RIPE-,
// APNIC-, AFRINIC- or LACNIC-style response. The first value of each
// single-valued field wins.
func parseWhoisResponse(raw string) (*RegistryRecord, error) {
	record := &RegistryRecord{}

	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := whoisField(line)
		if !ok || value == "" {
			continue
		}

		switch key {
		case "netname":
			setOnce(&record.EntityName, value)
		case "orgname", "org-name", "owner":
			setOnce(&record.Registrant, value)
		case "country":
			setOnce(&record.Country, strings.ToUpper(value))
		case "ref":
			setOnce(&record.InfoURL, value)
		case "descr", "comment":
			record.Description = append(record.Description, value)
		}
	}

	if record.EntityName == "" && record.Registrant == "" {
		return nil, ErrNoEntities
	}
	record.Description = dedupeLines(record.Description)
	return record, nil
}

func setOnce(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// dedupeLines drops repeated lines in place. The first occurrence of each
// line keeps its position.
func dedupeLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	kept := lines[:0]
	for _, line := range lines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
