// Package log configures the process-wide slog logger used by all diffract
// binaries and hands out module-tagged child loggers.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. Format is "text" for interactive use
// at the beamline or "json" for log aggregation.
func Setup(logLevel, format string) {
	slog.SetDefault(NewLogger(os.Stderr, logLevel, format))
}

// NewLogger builds a logger writing to w with the given level and format.
func NewLogger(w io.Writer, logLevel, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithModule returns a child of the default logger tagged with the diffract
// component name (e.g. "api", "runner", "mproc.controller").
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
