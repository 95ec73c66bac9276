package common

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Fields represents structured logging fields.
type Fields map[string]any

// SetupLogger configures the global logger with appropriate settings.
func SetupLogger(level slog.Level, format string) error {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return nil
}

// LogError logs an error with additional context.
func LogError(err error, msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("error", err.Error()))

	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	slog.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// LogStage logs one pipeline stage outcome. Every cascade stage reports its
// method, duration, and confidence through here regardless of outcome.
func LogStage(operation, method string, duration time.Duration, confidence float64) {
	slog.LogAttrs(context.Background(), slog.LevelDebug, "stage complete",
		slog.String("operation", operation),
		slog.String("method", method),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.Float64("confidence", confidence),
	)
}
