package echo

import (
	"context"
	"testing"
	"time"

	"github.com/cuongceg/symbiot/internal/broker/brokertest"
	"github.com/cuongceg/symbiot/internal/receiver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	deps := receiver.Deps{Conn: brokertest.NewConn(), Log: zerolog.Nop()}

	_, err := New(deps, receiver.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "echo.topic is required")

	_, err = New(deps, receiver.Options{"topic": "a/#"})
	require.Error(t, err)

	_, err = New(deps, receiver.Options{"topic": "a/#", "reply_topic": "a/out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop")

	r, err := New(deps, receiver.Options{"topic": "in"})
	require.NoError(t, err)
	assert.Equal(t, "in/echo", r.(*Echo).cfg.ReplyTopic)
}

func TestRun_Echoes(t *testing.T) {
	conn := brokertest.NewConn()
	r, err := New(receiver.Deps{Conn: conn, Log: zerolog.Nop()}, receiver.Options{"topic": "in/+", "reply_topic": "out"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return conn.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Publish(ctx, "in/x", []byte("ping")))

	require.Eventually(t, func() bool { return len(conn.Published()) == 2 }, time.Second, 5*time.Millisecond)
	out := conn.Published()[1]
	assert.Equal(t, "out", out.Topic)
	assert.Equal(t, "ping", string(out.Payload))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("echo did not stop")
	}
}

func TestRegistered(t *testing.T) {
	_, err := receiver.Resolve("Echo")
	assert.NoError(t, err)
}
