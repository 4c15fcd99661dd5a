// Package logging builds the daemon's zerolog loggers.
//
// Console output is meant for a terminal; JSON output is meant for journald
// or a log shipper. Library packages never build their own logger, they take
// a *zerolog.Logger through their Config.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New creates a logger writing to stdout. level accepts trace, debug,
// info, warn and error (case-insensitive); anything else means info.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// ParseLevel converts a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidFormat reports whether New understands format.
func ValidFormat(format string) bool {
	return strings.EqualFold(format, FormatConsole) || strings.EqualFold(format, FormatJSON)
}
