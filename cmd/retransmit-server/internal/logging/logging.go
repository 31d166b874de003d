// Package logging adapts zerolog to retransmit.Logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coregx/retransmit"
)

// Logger implements retransmit.Logger on top of a zerolog.Logger.
type Logger struct {
	log zerolog.Logger
}

var _ retransmit.Logger = (*Logger)(nil)

// New creates a Logger writing to w at the given level ("debug", "info", "warn",
// "error"). Unknown levels fall back to info. Pretty selects console output.
func New(w io.Writer, level string, pretty bool) *Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return &Logger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "retransmit").Logger(),
	}
}

// NewStdout creates a Logger writing to standard output.
func NewStdout(level string, pretty bool) *Logger {
	return New(os.Stdout, level, pretty)
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.log
}

// Debugf implements retransmit.Logger.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

// Infof implements retransmit.Logger.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

// Warnf implements retransmit.Logger.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

// Errorf implements retransmit.Logger.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

// Info implements retransmit.Logger.
func (l *Logger) Info(message string) {
	l.log.Info().Msg(message)
}
