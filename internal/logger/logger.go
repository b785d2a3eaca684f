// Package logger sets up structured JSON logging with log/slog and carries
// request IDs through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Init creates a JSON logger for service writing to stdout and installs it as
// the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	return InitTo(os.Stdout, service, level)
}

// InitTo is Init with an explicit writer.
func InitTo(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	l := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(l)
	return l
}

// ParseLevel maps LOG_LEVEL values to a slog level. Unknown values give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from context. Returns "" if not set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// NewRequestID returns a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// Attrs returns slog attributes carrying the request ID from ctx, or nil.
// Usage: slog.Info("msg", logger.Attrs(ctx)...)
func Attrs(ctx context.Context) []any {
	id := RequestID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("request_id", id)}
}
