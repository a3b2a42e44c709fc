// Package heartbeat publishes a periodic liveness message.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/cuongceg/symbiot/internal/config"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultInterval = 30 * time.Second

type Config struct {
	Topic    string          `json:"topic" validate:"required"`
	Interval config.Duration `json:"interval"`
	Format   string          `json:"format" validate:"omitempty,oneof=json protobuf"`
	Count    int             `json:"count" validate:"gte=0"`
	Source   string          `json:"source"`
}

type Heartbeat struct {
	cfg  Config
	conn broker.Conn
	log  zerolog.Logger
	now  func() time.Time
}

func New(deps receiver.Deps, opts receiver.Options) (receiver.Receiver, error) {
	cfg, err := config.Decode[Config](opts)
	if err != nil {
		return nil, err
	}
	if err := config.Validate("heartbeat", &cfg); err != nil {
		return nil, err
	}
	if cfg.Interval.Duration <= 0 {
		cfg.Interval.Duration = defaultInterval
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Source == "" {
		cfg.Source, _ = os.Hostname()
	}
	return &Heartbeat{cfg: cfg, conn: deps.Conn, log: deps.Log, now: time.Now}, nil
}

// Run beats immediately, then every interval. It returns nil after Count
// beats when Count is set.
func (h *Heartbeat) Run(ctx context.Context) error {
	t := time.NewTicker(h.cfg.Interval.Duration)
	defer t.Stop()

	for seq := 1; ; seq++ {
		payload, err := h.encode(seq)
		if err != nil {
			return err
		}
		if err := h.conn.Publish(ctx, h.cfg.Topic, payload); err != nil {
			return fmt.Errorf("heartbeat %d: %w", seq, err)
		}
		h.log.Debug().Int("seq", seq).Msg("beat")
		if h.cfg.Count > 0 && seq >= h.cfg.Count {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (h *Heartbeat) encode(seq int) ([]byte, error) {
	fields := map[string]any{
		"source": h.cfg.Source,
		"seq":    seq,
		"time":   h.now().UTC().Format(time.RFC3339Nano),
	}
	if h.cfg.Format == "protobuf" {
		st, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, err
		}
		return proto.Marshal(st)
	}
	return json.Marshal(fields)
}

func init() { receiver.Register("heartbeat", New) }
