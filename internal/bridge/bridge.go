// Package bridge supervises the receivers sharing one broker connection.
//
// A Bridge is built from the configuration document: the reserved "mqtt"
// section carries the connection parameters and every other section names a
// receiver to launch with that section as its options. Run opens the
// connection, builds every receiver, runs each in its own goroutine and
// returns once all of them have stopped, closing the connection on every
// path.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/cuongceg/symbiot/internal/config"
	"github.com/cuongceg/symbiot/internal/metrics"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// ConnectionSection is the reserved top-level key for broker settings.
	ConnectionSection = "mqtt"
	// ClientID identifies the bridge to the broker. It is not configurable.
	ClientID = "symbiot"
)

// Connection holds the reserved section's settings.
type Connection struct {
	BrokerHost string `json:"broker_host" validate:"required"`
}

// DialFunc opens the shared connection.
type DialFunc func(ctx context.Context, host, clientID string) (broker.Conn, error)

type Bridge struct {
	conn      Connection
	receivers map[string]receiver.Options

	registry *receiver.Registry
	dial     DialFunc
	log      zerolog.Logger
}

// Option customises a Bridge.
type Option func(*Bridge)

// WithRegistry resolves receiver names against r instead of
// receiver.Default.
func WithRegistry(r *receiver.Registry) Option {
	return func(b *Bridge) { b.registry = r }
}

// WithDialer replaces broker.Dial.
func WithDialer(d DialFunc) Option {
	return func(b *Bridge) { b.dial = d }
}

// WithLogger sets the logger used by the bridge and handed to receivers.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New takes the whole configuration document. The connection section is
// extracted and the remaining sections are kept as receiver options. doc is
// not modified.
func New(doc map[string]any, opts ...Option) (*Bridge, error) {
	raw, ok := doc[ConnectionSection]
	if !ok {
		return nil, &ConfigurationError{
			Section: ConnectionSection,
			Err:     fmt.Errorf("an %q section is required in the configuration file", ConnectionSection),
		}
	}
	section, ok := config.Section(raw)
	if !ok {
		return nil, &ConfigurationError{Section: ConnectionSection, Err: fmt.Errorf("expected a table, got %T", raw)}
	}
	conn, err := config.Decode[Connection](section)
	if err != nil {
		return nil, &ConfigurationError{Section: ConnectionSection, Err: err}
	}
	if err := config.Validate(ConnectionSection, &conn); err != nil {
		return nil, &ConfigurationError{Section: ConnectionSection, Err: err}
	}

	receivers := make(map[string]receiver.Options, len(doc)-1)
	for name, v := range doc {
		if name == ConnectionSection {
			continue
		}
		opts, ok := config.Section(v)
		if !ok {
			return nil, &ConfigurationError{Section: name, Err: fmt.Errorf("expected a table, got %T", v)}
		}
		receivers[name] = opts
	}

	b := &Bridge{
		conn:      conn,
		receivers: receivers,
		registry:  receiver.Default,
		dial:      broker.Dial,
		log:       log.Logger,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// BrokerHost returns the configured broker host.
func (b *Bridge) BrokerHost() string { return b.conn.BrokerHost }

// Receivers returns the configured receiver names, sorted.
func (b *Bridge) Receivers() []string {
	names := make([]string, 0, len(b.receivers))
	for n := range b.receivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type task struct {
	name string
	rcv  receiver.Receiver
}

// Run drives every receiver to completion. The first receiver failure (or a
// lost connection) cancels the others; Run waits for all of them to return
// before closing the connection and reporting that first failure.
// Cancelling ctx stops the bridge, which then returns nil unless a receiver
// failed for another reason.
func (b *Bridge) Run(ctx context.Context) (err error) {
	host := b.conn.BrokerHost
	b.log.Info().Str("host", host).Str("client_id", ClientID).Msg("connecting to broker")

	raw, err := b.dial(ctx, host, ClientID)
	if err != nil {
		return &ConnectionError{Op: "connect", Host: host, Err: err}
	}
	defer func() {
		if cerr := raw.Close(); cerr != nil {
			b.log.Warn().Err(cerr).Msg("closing broker connection")
			if err == nil {
				err = &ConnectionError{Op: "close", Host: host, Err: cerr}
			}
		}
		b.log.Info().Msg("finished bridge")
	}()
	conn := broker.Instrument(raw, b.log.With().Str("host", host).Logger())

	tasks, err := b.build(conn)
	if err != nil {
		return err
	}

	err = b.supervise(ctx, conn, tasks)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		b.log.Info().Msg("stop requested")
		return nil
	}
	return err
}

// build resolves and constructs every receiver before any is started, so an
// unknown name never leaves a partial set running.
func (b *Bridge) build(conn broker.Conn) ([]task, error) {
	tasks := make([]task, 0, len(b.receivers))
	for name, opts := range b.receivers {
		factory, err := b.registry.Resolve(name)
		if err != nil {
			return nil, err
		}
		rcv, err := factory(receiver.Deps{
			Conn: conn,
			Log:  b.log.With().Str("receiver", name).Logger(),
		}, opts)
		if err != nil {
			return nil, &ConfigurationError{Section: name, Err: err}
		}
		tasks = append(tasks, task{name: name, rcv: rcv})
	}
	return tasks, nil
}

func (b *Bridge) supervise(ctx context.Context, conn broker.Conn, tasks []task) error {
	g, gctx := errgroup.WithContext(ctx)

	var running sync.WaitGroup
	running.Add(len(tasks))
	for _, t := range tasks {
		g.Go(func() error {
			defer running.Done()
			return b.runTask(gctx, t)
		})
	}

	finished := make(chan struct{})
	go func() {
		running.Wait()
		close(finished)
	}()

	// A lost session fails the run like a receiver would.
	g.Go(func() error {
		select {
		case <-finished:
			return nil
		case <-gctx.Done():
			return nil
		case <-conn.Done():
			cause := conn.Err()
			if cause == nil {
				cause = broker.ErrClosed
			}
			return &ConnectionError{Op: "session", Host: b.conn.BrokerHost, Err: cause}
		}
	})

	return g.Wait()
}

func (b *Bridge) runTask(ctx context.Context, t task) (err error) {
	l := b.log.With().Str("receiver", t.name).Logger()
	metrics.ReceiversRunning.Inc()
	defer metrics.ReceiversRunning.Dec()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				metrics.ReceiverFailures.WithLabelValues(t.name).Inc()
				l.Error().Err(err).Msg("receiver failed")
			}
			err = &ComponentFailure{Name: t.name, Err: err}
			return
		}
		l.Info().Msg("receiver stopped")
	}()

	l.Info().Msg("receiver started")
	return t.rcv.Run(ctx)
}
