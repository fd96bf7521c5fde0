// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetGlobal replaces the logger used by the audit and websocket loggers.
func SetGlobal(l *slog.Logger) {
	if l == nil {
		return
	}
	GlobalLogger = &Logger{Logger: l}
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown input is info.
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

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key under which the request correlation id is stored.
const CorrelationID LogContextKey = "correlation_id"

// WSLoggingEnabled toggles connect, disconnect and lifecycle lines. Errors are
// always logged.
var WSLoggingEnabled = true

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// AuditLogger writes one line per privileged change. Lines carry audit=true so
// they can be routed separately from request logs.
type AuditLogger struct {
	component string
}

// NewAuditLogger creates an AuditLogger for the named component.
func NewAuditLogger(component string) *AuditLogger {
	return &AuditLogger{component: component}
}

func (l *AuditLogger) log(ctx context.Context, msg string, attrs ...any) {
	base := []any{
		slog.Bool("audit", true),
		slog.String("component", l.component),
	}
	if id := ExtractCorrelationID(ctx); id != "" {
		base = append(base, slog.String("correlation_id", id))
	}
	GlobalLogger.InfoContext(ctx, msg, append(base, attrs...)...)
}

// LogTransition records an approval state change made by actorID.
func (l *AuditLogger) LogTransition(ctx context.Context, event, actorID, profileID, from, to string) {
	l.log(ctx, "approval transition",
		slog.String("event", event),
		slog.String("actor_id", actorID),
		slog.String("profile_id", profileID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogRoleChange records an out-of-band role change made by operator.
func (l *AuditLogger) LogRoleChange(ctx context.Context, operator, profileID, email, fromRole, toRole, status string) {
	l.log(ctx, "role changed",
		slog.String("operator", operator),
		slog.String("profile_id", profileID),
		slog.String("email", email),
		slog.String("from_role", fromRole),
		slog.String("to_role", toRole),
		slog.String("approval_status", status),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a realtime subscription opened by a profile.
func (l *WSLogger) LogConnect(ctx context.Context, profileID string, console bool) {
	if !WSLoggingEnabled {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("profile_id", profileID),
		slog.Bool("console", console),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, profileID string, reason string) {
	if !WSLoggingEnabled {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("profile_id", profileID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, profileID string, err error, eventType string) {
	GlobalLogger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("profile_id", profileID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogLifecycle logs a WebSocket hub lifecycle event.
func (l *WSLogger) LogLifecycle(ctx context.Context, event string, fields map[string]any) {
	if !WSLoggingEnabled {
		return
	}
	attrs := []any{
		slog.String("hub", l.hubName),
		slog.String("event", event),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "websocket lifecycle", attrs...)
}

// LogAsyncOperationError logs a failure in work that has no caller to return
// an error to, such as event publication after a commit.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]any) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}
	if id := ExtractCorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}
