// Package logging configures log/slog for the CLI and builds run-scoped
// loggers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Setup installs a default slog logger writing to stderr.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	l := New(os.Stderr, level, format)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForRun returns base tagged with the job name and a fresh run_id, and the
// run id itself. A nil base means slog.Default().
//
//	log, runID := logging.ForRun(nil, "istanbul_weather")
//	log.Info("run started")
func ForRun(base *slog.Logger, job string) (*slog.Logger, string) {
	if base == nil {
		base = slog.Default()
	}
	id := uuid.NewString()
	return base.With("job", job, "run_id", id), id
}
