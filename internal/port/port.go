// Package port answers whether the service port is free before the sidecar
// is spawned.
package port

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"syscall"
)

// Available reports whether nothing is listening on port on either loopback
// address. "localhost" may resolve to ::1, so an owner bound only there
// still counts. A host without IPv6 is judged on 127.0.0.1 alone.
func Available(port int) bool {
	p := strconv.Itoa(port)

	ln, err := net.Listen("tcp4", net.JoinHostPort("127.0.0.1", p))
	if err != nil {
		return false
	}
	ln.Close()

	ln, err = net.Listen("tcp6", net.JoinHostPort("::1", p))
	if err != nil {
		return !errors.Is(err, syscall.EADDRINUSE)
	}
	ln.Close()
	return true
}

// FromURL extracts the port of an http(s) URL, applying scheme defaults when
// none is given.
func FromURL(raw string) (int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing url %q: %w", raw, err)
	}
	if u.Host == "" {
		return 0, fmt.Errorf("url %q has no host", raw)
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return 0, fmt.Errorf("url %q has invalid port %q", raw, p)
		}
		return n, nil
	}

	switch u.Scheme {
	case "http":
		return 80, nil
	case "https":
		return 443, nil
	default:
		return 0, fmt.Errorf("url %q has no port and unknown scheme %q", raw, u.Scheme)
	}
}
