package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLogger creates a new configured logger.
func NewLogger(cfg Config) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default: // "json" is default
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

// SetDefault sets the default global logger.
func SetDefault(cfg Config) {
	slog.SetDefault(NewLogger(cfg))
}

// ParseLevel converts a string to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying the attributes of a single upstream
// collection, used by the cache and client logs.
func With(logger *slog.Logger, resource string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("resource", resource))
}
