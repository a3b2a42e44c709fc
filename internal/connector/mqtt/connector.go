package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 0
	defaultTimeout = 10 * time.Second
	disconnectWait = 250 // ms
)

// Connector is a broker.Conn over an MQTT 3.1.1 session.
type Connector struct {
	broker.Lifecycle

	client paho.Client

	mu   sync.Mutex
	subs map[string]*broker.Stream
}

// Options builds the paho options for ep. Exposed for tests.
func Options(ep broker.Endpoint) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker("tcp://" + ep.Host()).
		SetClientID(ep.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false).
		SetConnectTimeout(defaultTimeout)
	if u := ep.URL.User; u != nil {
		opts.SetUsername(u.Username())
		if pass, ok := u.Password(); ok {
			opts.SetPassword(pass)
		}
	}
	return opts
}

// Open connects to the broker at ep.
func Open(ctx context.Context, ep broker.Endpoint) (*Connector, error) {
	c := &Connector{subs: map[string]*broker.Stream{}}
	opts := Options(ep).SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.Lost(fmt.Errorf("mqtt connection lost: %w", err))
	})
	c.client = paho.NewClient(opts)

	if err := wait(ctx, c.client.Connect()); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", ep.Host(), err)
	}
	return c, nil
}

// wait blocks on a paho token, honouring ctx.
func wait(ctx context.Context, t paho.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connector) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	return wait(ctx, c.client.Publish(topic, qos, false, payload))
}

func (c *Connector) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	c.mu.Lock()
	if _, dup := c.subs[topic]; dup {
		c.mu.Unlock()
		// paho keeps one handler per filter
		return nil, fmt.Errorf("mqtt: topic %q already subscribed on this connection", topic)
	}
	st := broker.NewStream(0)
	c.subs[topic] = st
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		st.Push(broker.Message{Topic: m.Topic(), Payload: m.Payload()})
	})
	if err := wait(ctx, token); err != nil {
		c.forget(topic)
		st.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	st.CloseWhen(ctx, c.Done(), func() {
		c.forget(topic)
		if !c.Closed() {
			t := c.client.Unsubscribe(topic)
			t.WaitTimeout(defaultTimeout)
		}
	})
	return st.C(), nil
}

func (c *Connector) forget(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
}

func (c *Connector) Close() error {
	if !c.Ended() {
		return nil
	}
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectWait)
	}
	return nil
}
