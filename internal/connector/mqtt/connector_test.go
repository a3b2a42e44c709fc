package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	ep, err := broker.ParseEndpoint("mqtt://user:pw@broker.local:1884")
	require.NoError(t, err)
	ep.ClientID = "symbiot"

	opts := Options(ep)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.local:1884", opts.Servers[0].Host)
	assert.Equal(t, "symbiot", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "pw", opts.Password)
	assert.False(t, opts.AutoReconnect)
	assert.True(t, opts.CleanSession)
}

func TestBareHostUsesMQTT(t *testing.T) {
	// nothing listens here; the point is that the mqtt transport is chosen
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = broker.Dial(ctx, addr, "symbiot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect mqtt")
}
