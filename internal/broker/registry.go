package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DialFunc opens a session for an endpoint.
type DialFunc func(ctx context.Context, ep Endpoint) (Conn, error)

// Transport describes a wire protocol able to produce a Conn.
type Transport struct {
	// Schemes are the URL schemes served by the transport, e.g. "nats".
	Schemes     []string
	DefaultPort string
	Dial        DialFunc
}

var (
	transportsMu sync.RWMutex
	transports   = map[string]Transport{}
)

// RegisterTransport makes t available to Dial. Connector packages call it
// from init().
func RegisterTransport(t Transport) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	for _, s := range t.Schemes {
		transports[strings.ToLower(s)] = t
	}
}

func lookupTransport(scheme string) (Transport, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	t, ok := transports[strings.ToLower(scheme)]
	return t, ok
}

// Schemes lists the registered schemes.
func Schemes() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	out := make([]string, 0, len(transports))
	for s := range transports {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Dial parses host, picks the transport registered for its scheme and opens
// a session identified by clientID.
func Dial(ctx context.Context, host, clientID string) (Conn, error) {
	ep, err := ParseEndpoint(host)
	if err != nil {
		return nil, err
	}
	t, ok := lookupTransport(ep.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnsupportedScheme, ep.Scheme, strings.Join(Schemes(), ", "))
	}
	if ep.Port() == "" && t.DefaultPort != "" {
		ep = ep.WithPort(t.DefaultPort)
	}
	ep.ClientID = clientID
	return t.Dial(ctx, ep)
}
