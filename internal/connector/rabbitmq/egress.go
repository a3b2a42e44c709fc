package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// egress publishes with confirms on a dedicated channel. AMQP channels are
// not safe for concurrent publishing, so Publish is serialized.
type egress struct {
	exchange    string
	contentType string
	cfg         Settings

	ch *amqp.Channel

	mu sync.Mutex
}

// confirmation is the part of *amqp.DeferredConfirmation Publish waits on.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

func newEgress(conn *amqp.Connection, cfg Settings) (*egress, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("egress channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &egress{
		exchange:    cfg.Exchange,
		contentType: cfg.ContentType,
		cfg:         cfg,
		ch:          ch,
	}, nil
}

func (e *egress) Publish(ctx context.Context, routingKey string, body []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, has := ctx.Deadline(); !has && e.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PublishTimeout)
		defer cancel()
	}

	pub := amqp.Publishing{
		ContentType:  e.contentType,
		Body:         body,
		DeliveryMode: amqp.Transient,
		AppId:        e.cfg.ClientID,
	}
	// not mandatory: a topic nobody listens to is not an error, as in MQTT
	dc, err := e.ch.PublishWithDeferredConfirmWithContext(ctx, e.exchange, routingKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", e.exchange, routingKey, err)
	}
	if dc == nil {
		return nil
	}
	return awaitConfirm(ctx, dc, e.exchange, routingKey)
}

// awaitConfirm waits for the confirm of one delivery tag. A confirm arriving
// after ctx is done is dropped by the library and never seen by a later
// publish.
func awaitConfirm(ctx context.Context, c confirmation, exchange, routingKey string) error {
	acked, err := c.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", exchange, routingKey, err)
	}
	if !acked {
		return fmt.Errorf("broker NACKed: exchange=%s rk=%s", exchange, routingKey)
	}
	return nil
}

func (e *egress) Close() error {
	return e.ch.Close()
}
