package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/ghalamif/kioskbridge/internal/domain"
)

// ResolveHostPort turns a user supplied bridge host ("10.0.0.5",
// "robot.local:9091", "ws://10.0.0.5:9090") into host:port, filling in
// defaultPort when none is given.
func ResolveHostPort(host string, defaultPort int) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("%w: blank host", domain.ErrInvalidEndpoint)
	}
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: %q", domain.ErrInvalidEndpoint, host)
		}
		host = u.Host
	}

	if h, p, err := net.SplitHostPort(host); err == nil {
		if h == "" {
			return "", fmt.Errorf("%w: missing host in %q", domain.ErrInvalidEndpoint, host)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return "", fmt.Errorf("%w: bad port in %q", domain.ErrInvalidEndpoint, host)
		}
		return net.JoinHostPort(h, p), nil
	}

	if strings.ContainsAny(host, "/ ") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidEndpoint, host)
	}
	if defaultPort <= 0 || defaultPort > 65535 {
		return "", fmt.Errorf("%w: no port for %q", domain.ErrInvalidEndpoint, host)
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(defaultPort)), nil
}
