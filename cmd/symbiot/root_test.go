package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongceg/symbiot/internal/bridge"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestRequiresConfigFile(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
}

func TestMissingConnectionSection(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bridge.toml")
	require.NoError(t, os.WriteFile(p, []byte("[echo]\ntopic = \"a\"\n"), 0o600))

	_, err := execute(t, "-q", p)
	require.Error(t, err)
	var cfgErr *bridge.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), err.Error())
	assert.Equal(t, "mqtt", cfgErr.Section)
}

func TestUnreadableConfig(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.toml")
}
