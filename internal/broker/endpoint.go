package broker

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultScheme is assumed for broker hosts given without a scheme.
const DefaultScheme = "mqtt"

// Endpoint is a parsed broker_host.
type Endpoint struct {
	Scheme   string
	URL      *url.URL
	ClientID string
}

// ParseEndpoint accepts "host", "host:port" or "scheme://host[:port][/path][?query]".
func ParseEndpoint(host string) (Endpoint, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Endpoint{}, errors.New("broker host is empty")
	}
	if !strings.Contains(host, "://") {
		host = DefaultScheme + "://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse broker host: %w", err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("broker host %q has no hostname", host)
	}
	return Endpoint{Scheme: strings.ToLower(u.Scheme), URL: u}, nil
}

// Host returns host:port.
func (e Endpoint) Host() string { return e.URL.Host }

// Hostname returns the host without port.
func (e Endpoint) Hostname() string { return e.URL.Hostname() }

// Port returns the explicit port, if any.
func (e Endpoint) Port() string { return e.URL.Port() }

// WithPort returns a copy of e using port.
func (e Endpoint) WithPort(port string) Endpoint {
	u := *e.URL
	u.Host = net.JoinHostPort(e.URL.Hostname(), port)
	e.URL = &u
	return e
}

// Query returns a query parameter of the host URL, or def.
func (e Endpoint) Query(key, def string) string {
	if v := e.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

// String renders the endpoint without credentials.
func (e Endpoint) String() string {
	return e.URL.Redacted()
}
