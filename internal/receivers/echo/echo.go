// Package echo republishes every message received on a topic.
package echo

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/cuongceg/symbiot/internal/config"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
)

type Config struct {
	Topic      string `json:"topic" validate:"required"`
	ReplyTopic string `json:"reply_topic"`
}

type Echo struct {
	cfg  Config
	conn broker.Conn
	log  zerolog.Logger
}

func New(deps receiver.Deps, opts receiver.Options) (receiver.Receiver, error) {
	cfg, err := config.Decode[Config](opts)
	if err != nil {
		return nil, err
	}
	if err := config.Validate("echo", &cfg); err != nil {
		return nil, err
	}
	if cfg.ReplyTopic == "" {
		if broker.HasWildcard(cfg.Topic) {
			return nil, errors.New("echo.reply_topic is required when topic has wildcards")
		}
		cfg.ReplyTopic = cfg.Topic + "/echo"
	}
	if broker.MatchTopic(cfg.Topic, cfg.ReplyTopic) {
		return nil, fmt.Errorf("echo.reply_topic %q matches topic %q and would loop", cfg.ReplyTopic, cfg.Topic)
	}
	return &Echo{cfg: cfg, conn: deps.Conn, log: deps.Log}, nil
}

func (e *Echo) Run(ctx context.Context) error {
	msgs, err := e.conn.Subscribe(ctx, e.cfg.Topic)
	if err != nil {
		return err
	}
	for m := range msgs {
		if err := e.conn.Publish(ctx, e.cfg.ReplyTopic, m.Payload); err != nil {
			return fmt.Errorf("echo to %s: %w", e.cfg.ReplyTopic, err)
		}
		e.log.Debug().Str("from", m.Topic).Str("to", e.cfg.ReplyTopic).Msg("echoed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("subscription %s ended: %w", e.cfg.Topic, broker.ErrClosed)
}

func init() { receiver.Register("echo", New) }
