package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, Level(0))
	assert.Equal(t, zerolog.InfoLevel, Level(1))
	assert.Equal(t, zerolog.DebugLevel, Level(2))
	assert.Equal(t, zerolog.DebugLevel, Level(5))
	assert.Equal(t, zerolog.ErrorLevel, Level(-1))
	assert.Equal(t, zerolog.FatalLevel, Level(-9))
}

func TestSetup(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	l := Setup(&buf, 1, false)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
