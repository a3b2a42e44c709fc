// Package logging configures the process-wide zerolog logger from the CLI
// verbosity flags.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BaseLevel is the level with no -v/-q flags.
const BaseLevel = zerolog.WarnLevel

// Level applies verbosity steps to BaseLevel: positive is more verbose.
func Level(verbosity int) zerolog.Level {
	l := int(BaseLevel) - verbosity
	if l < int(zerolog.DebugLevel) {
		l = int(zerolog.DebugLevel)
	}
	if l > int(zerolog.FatalLevel) {
		l = int(zerolog.FatalLevel)
	}
	return zerolog.Level(l)
}

// Setup installs a console logger on w as the global logger and returns it.
// debug adds caller locations.
func Setup(w io.Writer, verbosity int, debug bool) zerolog.Logger {
	level := Level(verbosity)
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp()
	if debug {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	log.Logger = l
	return l
}
