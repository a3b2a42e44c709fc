package stream

import "github.com/rs/zerolog"

// natsLogger adapts zerolog to server.Logger.
type natsLogger struct {
	l zerolog.Logger
}

func (n *natsLogger) Noticef(format string, v ...any) { n.l.Info().Msgf(format, v...) }
func (n *natsLogger) Warnf(format string, v ...any)   { n.l.Warn().Msgf(format, v...) }
func (n *natsLogger) Fatalf(format string, v ...any)  { n.l.Error().Msgf(format, v...) }
func (n *natsLogger) Errorf(format string, v ...any)  { n.l.Error().Msgf(format, v...) }
func (n *natsLogger) Debugf(format string, v ...any)  { n.l.Debug().Msgf(format, v...) }
func (n *natsLogger) Tracef(format string, v ...any)  { n.l.Trace().Msgf(format, v...) }
