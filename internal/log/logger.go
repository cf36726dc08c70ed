// Package log configures the process-wide slog default. Everything else in
// the codebase logs through slog directly.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger for a binary. Level and format come
// from LOG_LEVEL (debug, info, warn, error) and LOG_FORMAT (text, json);
// the service name tags every record so the API and the worker can share
// one log stream.
func Setup(service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
