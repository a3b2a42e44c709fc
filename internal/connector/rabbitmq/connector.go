package rabbitmq

import (
	"context"
	"fmt"

	"github.com/cuongceg/symbiot/internal/broker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Connector is a broker.Conn over one AMQP connection. Topics map to
// routing keys on a topic exchange, which is where RabbitMQ's MQTT plugin
// publishes too.
type Connector struct {
	broker.Lifecycle

	cfg  Settings
	conn *amqp.Connection
	pub  *egress
}

// Open dials the broker and prepares the confirming publish channel.
func Open(ctx context.Context, ep broker.Endpoint) (*Connector, error) {
	cfg := settingsFrom(ep)
	dialCfg := amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	}
	dialCfg.Properties.SetClientConnectionName(cfg.ClientID)

	conn, err := amqp.DialConfig(cfg.URL, dialCfg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	pub, err := newEgress(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c := &Connector{cfg: cfg, conn: conn, pub: pub}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if aerr, ok := <-closed; ok && aerr != nil {
			log.Warn().Str("from", "rabbitmq").Str("reason", aerr.Reason).Int("code", aerr.Code).Msg("connection closed by server")
			c.Lost(aerr)
		}
	}()
	return c, nil
}

func (c *Connector) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	return c.pub.Publish(ctx, broker.AMQPTopics.Name(topic), payload)
}

func (c *Connector) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	key, err := broker.AMQPTopics.Filter(topic)
	if err != nil {
		return nil, err
	}
	ing, err := newIngress(c.conn, c.cfg.Exchange, key)
	if err != nil {
		return nil, err
	}
	return ing.Start(ctx, c.Done())
}

// Close closes the publish channel and the connection. Consumers end with
// their channels.
func (c *Connector) Close() error {
	if !c.Ended() {
		return nil
	}
	var firstErr error
	if err := c.pub.Close(); err != nil {
		firstErr = err
	}
	if err := c.conn.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
