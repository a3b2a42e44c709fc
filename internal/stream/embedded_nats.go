// Package stream runs an in-process NATS server, for local runs of the
// bridge without an external broker and for tests.
package stream

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EmbeddedNats is a running in-process server.
type EmbeddedNats struct {
	Server *server.Server
}

// Options configures the embedded server.
type Options struct {
	// BindAddress is host:port; port -1 picks a random free port.
	BindAddress string
	NodeName    string
	// Logs, when set, receives the server's own logs.
	Logs *zerolog.Logger
}

// StartEmbeddedServer starts a server and waits until it accepts clients.
func StartEmbeddedServer(o Options) (*EmbeddedNats, error) {
	host, port, err := parseHostAndPort(o.BindAddress)
	if err != nil {
		return nil, err
	}
	name := o.NodeName
	if name == "" {
		name = "symbiot-embedded"
	}

	opts := &server.Options{
		Host:       host,
		Port:       port,
		ServerName: name,
		NoSigs:     true,
		NoLog:      o.Logs == nil,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, err
	}
	if o.Logs != nil {
		ns.SetLogger(&natsLogger{o.Logs.With().Str("from", "nats").Logger()}, false, false)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("NATS Server time out")
	}
	log.Debug().Str("url", ns.ClientURL()).Msg("embedded nats server ready")
	return &EmbeddedNats{Server: ns}, nil
}

// URL is the address clients use, as a nats:// URL.
func (e *EmbeddedNats) URL() string { return e.Server.ClientURL() }

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedNats) Shutdown() {
	e.Server.Shutdown()
	e.Server.WaitForShutdown()
}

func parseHostAndPort(adr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(adr)
	if err != nil {
		return "", 0, fmt.Errorf("bind address %q: %w", adr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("bind address %q: %w", adr, err)
	}
	return host, port, nil
}
