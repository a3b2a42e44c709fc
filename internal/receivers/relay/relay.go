// Package relay forwards JSON messages from one topic to another, optionally
// routing on a field of the payload.
package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/cuongceg/symbiot/internal/config"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const keyPlaceholder = "{key}"

type Config struct {
	From string `json:"from" validate:"required"`
	// To may contain {key}, replaced by the value at Key.
	To string `json:"to" validate:"required"`
	// Key is a gjson path into the payload, e.g. "device.id".
	Key string `json:"key"`
	// Require lists gjson paths that must exist; other messages are dropped.
	Require []string `json:"require"`
}

type Relay struct {
	cfg  Config
	conn broker.Conn
	log  zerolog.Logger
}

func New(deps receiver.Deps, opts receiver.Options) (receiver.Receiver, error) {
	cfg, err := config.Decode[Config](opts)
	if err != nil {
		return nil, err
	}
	if err := config.Validate("relay", &cfg); err != nil {
		return nil, err
	}
	templated := strings.Contains(cfg.To, keyPlaceholder)
	if templated && cfg.Key == "" {
		return nil, fmt.Errorf("relay.key is required when relay.to contains %s", keyPlaceholder)
	}
	if !templated && broker.MatchTopic(cfg.From, cfg.To) {
		return nil, fmt.Errorf("relay.to %q matches relay.from %q and would loop", cfg.To, cfg.From)
	}
	return &Relay{cfg: cfg, conn: deps.Conn, log: deps.Log}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	msgs, err := r.conn.Subscribe(ctx, r.cfg.From)
	if err != nil {
		return err
	}
	for m := range msgs {
		to, ok := r.route(m)
		if !ok {
			continue
		}
		if err := r.conn.Publish(ctx, to, m.Payload); err != nil {
			return fmt.Errorf("relay to %s: %w", to, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("subscription %s ended: %w", r.cfg.From, broker.ErrClosed)
}

// route picks the destination topic, or reports that m must be dropped.
func (r *Relay) route(m broker.Message) (string, bool) {
	if len(r.cfg.Require) > 0 || r.cfg.Key != "" {
		if !gjson.ValidBytes(m.Payload) {
			r.log.Debug().Str("topic", m.Topic).Msg("dropping non-JSON payload")
			return "", false
		}
	}
	for _, path := range r.cfg.Require {
		if !gjson.GetBytes(m.Payload, path).Exists() {
			r.log.Debug().Str("topic", m.Topic).Str("path", path).Msg("dropping message without required field")
			return "", false
		}
	}
	if !strings.Contains(r.cfg.To, keyPlaceholder) {
		return r.cfg.To, true
	}
	key := gjson.GetBytes(m.Payload, r.cfg.Key)
	if !key.Exists() || key.String() == "" {
		r.log.Debug().Str("topic", m.Topic).Str("key", r.cfg.Key).Msg("dropping message without routing key")
		return "", false
	}
	k := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(key.String())
	to := strings.ReplaceAll(r.cfg.To, keyPlaceholder, k)
	if broker.MatchTopic(r.cfg.From, to) {
		r.log.Warn().Str("to", to).Msg("dropping message that would loop")
		return "", false
	}
	return to, true
}

func init() { receiver.Register("relay", New) }
