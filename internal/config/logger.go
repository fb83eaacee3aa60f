package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger for the given environment:
// JSON at info level in production, text at debug level elsewhere.
// Source locations are attached only in development.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	var handler slog.Handler
	switch env {
	case "production":
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
