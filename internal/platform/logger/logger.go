package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. The service name shows up on
// every line so the three binaries can share one log stream.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With("service", service)
}
