package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// Logger is a structured JSON logger. Every entry carries the service name,
// hostname, an action tag and the request id found in ctx.
type Logger struct {
	service  string
	hostname string
	log      *slog.Logger
}

// NewLogger creates a logger writing to stdout at the level named by LOG_LEVEL (default info).
func NewLogger(service string) *Logger {
	return New(service, os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New creates a logger writing JSON lines to w.
func New(service string, w io.Writer, level slog.Level) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})

	return &Logger{
		service:  service,
		hostname: hostname,
		log:      slog.New(handler).With("service", service, "hostname", hostname),
	}
}

// ParseLevel maps "debug", "warn", "error" to slog levels; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Define an unexported type for context keys.
type ctxKey string

// requestIDKey is the context key for the request ID.
const requestIDKey ctxKey = "request_id"

// WithRequestID returns a context carrying a request id (useful for HTTP/mq hops).
func (logger *Logger) WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// RequestIDFrom returns the request id saved in the context, or "".
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (logger *Logger) emit(ctx context.Context, level slog.Level, action, msg string, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("action", action),
		slog.String("request_id", RequestIDFrom(ctx)),
	)
	logger.log.LogAttrs(ctx, level, msg, attrs...)
}

// -- Logger helper functions --

func (logger *Logger) Info(ctx context.Context, action, msg string, details any) {
	logger.emit(ctx, slog.LevelInfo, action, msg, detailsAttr(details)...)
}

func (logger *Logger) Debug(ctx context.Context, action, msg string, details any) {
	logger.emit(ctx, slog.LevelDebug, action, msg, detailsAttr(details)...)
}

func (logger *Logger) Warn(ctx context.Context, action, msg string, details any) {
	logger.emit(ctx, slog.LevelWarn, action, msg, detailsAttr(details)...)
}

// Error logs err with a stack trace. A nil err is allowed.
func (logger *Logger) Error(ctx context.Context, action, msg string, err error) {
	var attrs []slog.Attr
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("stack", string(debug.Stack())),
		))
	}
	logger.emit(ctx, slog.LevelError, action, msg, attrs...)
}

func detailsAttr(details any) []slog.Attr {
	if details == nil {
		return nil
	}
	return []slog.Attr{slog.Any("details", details)}
}
