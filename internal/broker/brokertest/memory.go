// Package brokertest provides an in-memory broker.Conn for tests.
package brokertest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cuongceg/symbiot/internal/broker"
)

// Published records one Publish call.
type Published struct {
	Topic   string
	Payload []byte
}

// Conn routes publishes to matching subscriptions in-process.
type Conn struct {
	broker.Lifecycle

	mu        sync.Mutex
	subs      map[*subscription]struct{}
	published []Published

	// PublishErr, when set, is returned by every Publish.
	PublishErr error

	closes atomic.Int32
}

type subscription struct {
	filter string
	stream *broker.Stream
}

func NewConn() *Conn {
	return &Conn{subs: map[*subscription]struct{}{}}
}

func (c *Conn) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.Closed() {
		return broker.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.mu.Lock()
	c.published = append(c.published, Published{Topic: topic, Payload: append([]byte(nil), payload...)})
	var targets []*broker.Stream
	for s := range c.subs {
		if broker.MatchTopic(s.filter, topic) {
			targets = append(targets, s.stream)
		}
	}
	c.mu.Unlock()

	for _, st := range targets {
		st.Push(broker.Message{Topic: topic, Payload: payload})
	}
	return nil
}

func (c *Conn) Subscribe(ctx context.Context, topic string) (<-chan broker.Message, error) {
	if c.Closed() {
		return nil, broker.ErrClosed
	}
	s := &subscription{filter: topic, stream: broker.NewStream(0)}
	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()
	s.stream.CloseWhen(ctx, c.Done(), func() {
		c.mu.Lock()
		delete(c.subs, s)
		c.mu.Unlock()
	})
	return s.stream.C(), nil
}

// Close ends the session and counts the call.
func (c *Conn) Close() error {
	c.closes.Add(1)
	c.Ended()
	return nil
}

// Drop simulates a lost session.
func (c *Conn) Drop(err error) { c.Lost(err) }

// Closes returns how many times Close was called.
func (c *Conn) Closes() int { return int(c.closes.Load()) }

// Published returns a copy of every publish so far.
func (c *Conn) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// Subscribers returns the number of live subscriptions.
func (c *Conn) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Dialer hands out a single Conn and counts dials.
type Dialer struct {
	Conn *Conn
	Err  error

	dials atomic.Int32
}

func (d *Dialer) Dial(ctx context.Context, host, clientID string) (broker.Conn, error) {
	d.dials.Add(1)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}

// Dials returns how many times Dial was called.
func (d *Dialer) Dials() int { return int(d.dials.Load()) }
