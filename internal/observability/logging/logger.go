// Package logging builds the worker's structured logger. Output is one JSON
// object per line on stdout so the log shipper needs no parsing rules.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns a JSON slog.Logger tagged with the service name.
// Unknown level strings fall back to info.
func NewJSONLogger(service, level string) *slog.Logger {
	return newLogger(os.Stdout, service, level)
}

func newLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel maps a config-file level string onto slog's levels.
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
