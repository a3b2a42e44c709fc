package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Connector is a broker.Conn over a core NATS connection. MQTT-style
// topics are mapped onto dotted subjects.
type Connector struct {
	broker.Lifecycle

	nc *nats.Conn
}

// Open connects to the server at ep. The core never reconnects, so the
// client's reconnect logic is disabled and a dropped connection ends the
// session.
func Open(ctx context.Context, ep broker.Endpoint) (*Connector, error) {
	c := &Connector{}
	opts := []nats.Option{
		nats.Name(ep.ClientID),
		nats.NoReconnect(),
		nats.Timeout(connectTimeout(ctx)),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Str("from", "nats").Msg("disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			err := nc.LastError()
			if err == nil {
				err = broker.ErrClosed
			}
			c.Lost(err)
		}),
	}
	if u := ep.URL.User; u != nil {
		if pass, ok := u.Password(); ok {
			opts = append(opts, nats.UserInfo(u.Username(), pass))
		} else {
			opts = append(opts, nats.Token(u.Username()))
		}
	}

	nc, err := nats.Connect("nats://"+ep.Host(), opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	c.nc = nc
	return c, nil
}

func connectTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return nats.DefaultTimeout
}

func (c *Connector) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.nc.Publish(broker.NATSTopics.Name(topic), payload)
}

func (c *Connector) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	subj, err := broker.NATSTopics.Filter(topic)
	if err != nil {
		return nil, err
	}
	st := broker.NewStream(0)
	sub, err := c.nc.Subscribe(subj, func(m *nats.Msg) {
		st.Push(toMessage(m))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}
	if err := c.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}
	st.CloseWhen(ctx, c.Done(), func() { _ = sub.Unsubscribe() })
	return st.C(), nil
}

func toMessage(m *nats.Msg) broker.Message {
	msg := broker.Message{
		Topic:   broker.NATSTopics.Topic(m.Subject),
		Payload: m.Data,
	}
	if len(m.Header) > 0 {
		msg.Headers = make(map[string]string, len(m.Header))
		for k := range m.Header {
			msg.Headers[k] = m.Header.Get(k)
		}
	}
	return msg
}

// Close drains subscriptions and closes the connection.
func (c *Connector) Close() error {
	if !c.Ended() {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
	return nil
}
