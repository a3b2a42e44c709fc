package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedServer(t *testing.T) {
	srv, err := StartEmbeddedServer(Options{BindAddress: "127.0.0.1:-1"})
	require.NoError(t, err)
	defer srv.Shutdown()

	assert.Contains(t, srv.URL(), "nats://127.0.0.1:")
	assert.True(t, srv.Server.Running())
}

func TestParseHostAndPort(t *testing.T) {
	host, port, err := parseHostAndPort("0.0.0.0:4222")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", host)
	assert.Equal(t, 4222, port)

	_, _, err = parseHostAndPort("localhost")
	assert.Error(t, err)
	_, _, err = parseHostAndPort("localhost:abc")
	assert.Error(t, err)
}
