package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pending stands in for a deferred confirmation of a single delivery tag.
type pending struct {
	acked chan bool
}

func (p pending) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-p.acked:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestAwaitConfirmAck(t *testing.T) {
	p := pending{acked: make(chan bool, 1)}
	p.acked <- true
	require.NoError(t, awaitConfirm(context.Background(), p, "amq.topic", "a.b"))
}

func TestAwaitConfirmNack(t *testing.T) {
	p := pending{acked: make(chan bool, 1)}
	p.acked <- false
	err := awaitConfirm(context.Background(), p, "amq.topic", "a.b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NACKed")
}

func TestAwaitConfirmLateAckStaysWithItsMessage(t *testing.T) {
	first := pending{acked: make(chan bool, 1)}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := awaitConfirm(ctx, first, "amq.topic", "a.b")
	require.True(t, errors.Is(err, context.DeadlineExceeded), err)

	// the first message's ack arrives late; the second is nacked
	first.acked <- true
	second := pending{acked: make(chan bool, 1)}
	second.acked <- false

	err = awaitConfirm(context.Background(), second, "amq.topic", "a.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rk=a.c")
}
