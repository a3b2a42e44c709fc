package rabbitmq

import (
	"context"
	"fmt"

	"github.com/cuongceg/symbiot/internal/broker"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ingress is one subscription: a server-named exclusive queue bound to the
// exchange, consumed on its own channel.
type ingress struct {
	exchange string
	key      string

	ch    *amqp.Channel
	queue string
}

func newIngress(conn *amqp.Connection, exchange, key string) (*ingress, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("ingress channel: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind %s to %s: %w", key, exchange, err)
	}
	return &ingress{exchange: exchange, key: key, ch: ch, queue: q.Name}, nil
}

func (i *ingress) Start(ctx context.Context, session <-chan struct{}) (<-chan broker.Message, error) {
	deliveries, err := i.ch.Consume(
		i.queue,
		"",
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = i.ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	st := broker.NewStream(0)
	go func() {
		for d := range deliveries {
			if !st.Push(toMessage(d)) {
				return
			}
		}
		st.Close()
	}()
	st.CloseWhen(ctx, session, func() { _ = i.ch.Close() })
	return st.C(), nil
}

func toMessage(d amqp.Delivery) broker.Message {
	msg := broker.Message{
		Topic:   broker.AMQPTopics.Topic(d.RoutingKey),
		Payload: d.Body,
	}
	if len(d.Headers) > 0 || d.ContentType != "" {
		msg.Headers = map[string]string{}
		if d.ContentType != "" {
			msg.Headers["content-type"] = d.ContentType
		}
		for k, v := range d.Headers {
			if s, ok := v.(string); ok {
				msg.Headers[k] = s
			}
		}
	}
	return msg
}
