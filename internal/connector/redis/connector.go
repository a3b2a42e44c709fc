package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/redis/go-redis/v9"
)

// Connector is a broker.Conn over Redis pub/sub. Channel names are the
// MQTT topics unchanged; wildcard filters use PSUBSCRIBE.
type Connector struct {
	broker.Lifecycle

	rdb *redis.Client
}

// Open connects and pings the server. redis://[user:pass@]host:port/db
// URLs are understood as go-redis parses them.
func Open(ctx context.Context, ep broker.Endpoint) (*Connector, error) {
	opts, err := redis.ParseURL("redis://" + userinfo(ep) + ep.Host() + ep.URL.Path)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	opts.ClientName = ep.ClientID
	opts.MinIdleConns = 1

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Connector{rdb: rdb}, nil
}

func userinfo(ep broker.Endpoint) string {
	if ep.URL.User == nil {
		return ""
	}
	return ep.URL.User.String() + "@"
}

// pattern converts an MQTT filter to a glob. Redis globs cannot express
// "exactly one level", so "+" widens to "*".
func pattern(filter string) string {
	p := strings.ReplaceAll(filter, "+", "*")
	if strings.HasSuffix(p, "/#") {
		p = strings.TrimSuffix(p, "/#") + "*"
	}
	return strings.ReplaceAll(p, "#", "*")
}

func (c *Connector) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	return c.rdb.Publish(ctx, topic, payload).Err()
}

func (c *Connector) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	var ps *redis.PubSub
	wild := broker.HasWildcard(topic)
	if wild {
		ps = c.rdb.PSubscribe(ctx, pattern(topic))
	} else {
		ps = c.rdb.Subscribe(ctx, topic)
	}
	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	st := broker.NewStream(0)
	go func() {
		defer st.Close()
		for m := range ps.Channel() {
			// the glob is wider than the filter, so re-check
			if wild && !broker.MatchTopic(topic, m.Channel) {
				continue
			}
			if !st.Push(broker.Message{Topic: m.Channel, Payload: []byte(m.Payload)}) {
				return
			}
		}
	}()
	st.CloseWhen(ctx, c.Done(), func() { _ = ps.Close() })
	return st.C(), nil
}

func (c *Connector) Close() error {
	if !c.Ended() {
		return nil
	}
	return c.rdb.Close()
}
