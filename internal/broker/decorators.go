package broker

import (
	"context"
	"time"

	"github.com/cuongceg/symbiot/internal/metrics"
	"github.com/rs/zerolog"
)

// Instrumented wraps a Conn with debug logging and Prometheus counters.
type Instrumented struct {
	Next Conn
	Log  zerolog.Logger
}

// Instrument decorates c. The result is what receivers see.
func Instrument(c Conn, log zerolog.Logger) Conn {
	return Instrumented{Next: c, Log: log}
}

func (d Instrumented) Done() <-chan struct{} { return d.Next.Done() }
func (d Instrumented) Err() error            { return d.Next.Err() }
func (d Instrumented) Close() error          { return d.Next.Close() }

func (d Instrumented) Publish(ctx context.Context, topic string, payload []byte) error {
	t0 := time.Now()
	err := d.Next.Publish(ctx, topic, payload)
	if err != nil {
		metrics.Publishes.WithLabelValues("error").Inc()
		d.Log.Debug().Err(err).Str("topic", topic).Msg("publish failed")
		return err
	}
	metrics.Publishes.WithLabelValues("ok").Inc()
	d.Log.Debug().Str("topic", topic).Int("bytes", len(payload)).Dur("took", time.Since(t0)).Msg("published")
	return nil
}

func (d Instrumented) Subscribe(ctx context.Context, topic string) (<-chan Message, error) {
	in, err := d.Next.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	d.Log.Debug().Str("topic", topic).Msg("subscribed")
	out := make(chan Message)
	go func() {
		defer close(out)
		for m := range in {
			metrics.Received.Inc()
			select {
			case out <- m:
			case <-ctx.Done():
				// drain so the transport side can finish closing
				for range in {
				}
				return
			}
		}
	}()
	return out, nil
}
