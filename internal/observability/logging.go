// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Stdout, "info", "json")
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	UserID        LogContextKey = "user_id"
)

// NewLogger builds a Logger writing to w. format is "json" or "text".
func NewLogger(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(&contextHandler{Handler: handler})}
}

// InitLogging replaces GlobalLogger. An empty format picks JSON in production
// and text everywhere else.
func InitLogging(env, level, format string) *Logger {
	if format == "" {
		format = "text"
		if env == "production" || env == "prod" {
			format = "json"
		}
	}
	GlobalLogger = NewLogger(os.Stdout, level, format)
	slog.SetDefault(GlobalLogger.Logger)
	return GlobalLogger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// contextHandler copies correlation and user ids from the context onto every record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := ExtractCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String(string(CorrelationID), id))
	}
	if uid, ok := ctx.Value(UserID).(uint); ok && uid != 0 {
		r.AddAttrs(slog.Uint64(string(UserID), uint64(uid)))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries a
// correlation ID, otherwise a child context with a fresh one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a new context tagged with the acting user.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, UserID, userID)
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogRace records a constraint race that was resolved without failing the caller.
func (l *RepoLogger) LogRace(ctx context.Context, operation string, fields ...any) {
	ConstraintRaces.WithLabelValues(operation).Inc()
	attrs := append([]any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}, fields...)
	GlobalLogger.DebugContext(ctx, "repository race resolved", attrs...)
}
