package router

import (
	"net"
	"strconv"
	"strings"

	"github.com/angeloszaimis/edge-router/internal/route"
)

const (
	DefaultHTTPPort  uint16 = 80
	DefaultHTTPSPort uint16 = 443
)

// DefaultPort returns 443 for encrypted schemes and 80 otherwise.
func DefaultPort(scheme string) uint16 {
	switch strings.ToLower(scheme) {
	case "https", "wss":
		return DefaultHTTPSPort
	default:
		return DefaultHTTPPort
	}
}

// ExtractHost returns the destination hostname and port. The Host header
// wins over the request authority. A missing or unparsable port falls back
// to the scheme default. The hostname is normalized for route lookup.
func ExtractHost(hostHeader, authority, scheme string) (string, uint16, error) {
	value := strings.TrimSpace(hostHeader)
	if value == "" {
		value = strings.TrimSpace(authority)
	}
	if value == "" {
		return "", 0, &RoutingError{Err: ErrNoHostHeader}
	}

	host, port := splitHostPort(value, DefaultPort(scheme))
	host = route.NormalizeHost(host)
	if host == "" {
		return "", 0, &RoutingError{Err: ErrNoHostHeader}
	}

	return host, port, nil
}

func splitHostPort(value string, defaultPort uint16) (string, uint16) {
	// Userinfo never takes part in routing.
	if i := strings.LastIndexByte(value, '@'); i >= 0 {
		value = value[i+1:]
	}

	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		// No port, or a bare IPv6 literal.
		return strings.Trim(value, "[]"), defaultPort
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return host, defaultPort
	}

	return host, uint16(port)
}
