package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"
)

// Connector is a broker.Conn over Kafka. One writer serves every publish
// (topic per message); each subscription is a consumer-group reader.
type Connector struct {
	broker.Lifecycle

	cfg    Config
	dialer *kafka.Dialer
	writer *kafka.Writer
}

// Open checks that a seed broker answers and prepares the shared writer.
func Open(ctx context.Context, ep broker.Endpoint) (*Connector, error) {
	cfg := configFrom(ep)
	dialer := &kafka.Dialer{
		Timeout:  10 * time.Second,
		ClientID: cfg.ClientID,
	}

	var lastErr error
	for _, b := range cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("kafka dial: %w", lastErr)
	}

	return &Connector{
		cfg:    cfg,
		dialer: dialer,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			BatchBytes:             128 << 10,
			Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		},
	}, nil
}

func (c *Connector) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Topic: topics.Name(topic),
		Value: payload,
	})
}

func (c *Connector) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	if broker.HasWildcard(topic) {
		return nil, fmt.Errorf("kafka subscribe %q: %w", topic, broker.ErrWildcardUnsupported)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     groupID(c.cfg.ClientID, topic),
		Topic:       topics.Name(topic),
		Dialer:      c.dialer,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     250 * time.Millisecond,
	})

	rctx, cancel := context.WithCancel(ctx)
	st := broker.NewStream(0)
	go func() {
		defer st.Close()
		for {
			m, err := r.ReadMessage(rctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
					log.Warn().Err(err).Str("from", "kafka").Str("topic", topic).Msg("reader stopped")
				}
				return
			}
			if !st.Push(toMessage(m)) {
				return
			}
		}
	}()
	st.CloseWhen(ctx, c.Done(), func() {
		cancel()
		_ = r.Close()
	})
	return st.C(), nil
}

func toMessage(m kafka.Message) broker.Message {
	msg := broker.Message{
		Topic:   topics.Topic(m.Topic),
		Payload: m.Value,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make(map[string]string, len(m.Headers))
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}

func (c *Connector) Close() error {
	if !c.Ended() {
		return nil
	}
	return c.writer.Close()
}
