package relay

import (
	"context"
	"testing"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/cuongceg/symbiot/internal/broker/brokertest"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(t *testing.T, conn broker.Conn, opts receiver.Options) *Relay {
	t.Helper()
	r, err := New(receiver.Deps{Conn: conn, Log: zerolog.Nop()}, opts)
	require.NoError(t, err)
	return r.(*Relay)
}

func TestNew_Validation(t *testing.T) {
	deps := receiver.Deps{Conn: brokertest.NewConn(), Log: zerolog.Nop()}
	for _, opts := range []receiver.Options{
		{"to": "b"},
		{"from": "a"},
		{"from": "a/#", "to": "a/out"},
		{"from": "a", "to": "b/{key}"},
		{"from": "a", "to": "b", "require": "not-a-list"},
	} {
		_, err := New(deps, opts)
		assert.Error(t, err, "%v", opts)
	}
}

func TestRoute(t *testing.T) {
	r := newRelay(t, brokertest.NewConn(), receiver.Options{
		"from":    "sensors/#",
		"to":      "devices/{key}/reading",
		"key":     "device.id",
		"require": []any{"value"},
	})

	cases := []struct {
		payload string
		to      string
		ok      bool
	}{
		{`{"device": {"id": "k1"}, "value": 21}`, "devices/k1/reading", true},
		{`{"device": {"id": "a/b"}, "value": 21}`, "devices/a_b/reading", true},
		{`{"device": {"id": "k1"}}`, "", false},
		{`{"value": 21}`, "", false},
		{`not json`, "", false},
	}
	for _, c := range cases {
		to, ok := r.route(broker.Message{Topic: "sensors/x", Payload: []byte(c.payload)})
		assert.Equal(t, c.ok, ok, c.payload)
		assert.Equal(t, c.to, to, c.payload)
	}
}

func TestRoute_DropsLoops(t *testing.T) {
	r := newRelay(t, brokertest.NewConn(), receiver.Options{"from": "a/+", "to": "a/{key}", "key": "k"})
	_, ok := r.route(broker.Message{Payload: []byte(`{"k": "x"}`)})
	assert.False(t, ok)
}

func TestRun_Forwards(t *testing.T) {
	conn := brokertest.NewConn()
	r := newRelay(t, conn, receiver.Options{"from": "in", "to": "out"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return conn.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Publish(ctx, "in", []byte("raw bytes")))
	require.Eventually(t, func() bool { return len(conn.Published()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, brokertest.Published{Topic: "out", Payload: []byte("raw bytes")}, conn.Published()[1])

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_SessionEnds(t *testing.T) {
	conn := brokertest.NewConn()
	r := newRelay(t, conn, receiver.Options{"from": "in", "to": "out"})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	require.Eventually(t, func() bool { return conn.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	conn.Drop(assert.AnError)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, broker.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
