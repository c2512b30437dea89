package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Production environments
// get JSON for log shipping; anything else gets text for readability.
func New(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
