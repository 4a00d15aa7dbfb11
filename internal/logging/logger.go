package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

type requestIDKey struct{}

const (
	levelDebug int32 = iota
	levelInfo
	levelWarn
	levelError
)

var minLevel atomic.Int32

func init() {
	minLevel.Store(levelInfo)
}

// SetLevel sets the lowest level that is written. Unknown names mean info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		minLevel.Store(levelDebug)
	case "warn", "warning":
		minLevel.Store(levelWarn)
	case "error":
		minLevel.Store(levelError)
	default:
		minLevel.Store(levelInfo)
	}
}

// WithRequestID stores a request ID in a standard context.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from a standard context
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services
type Logger struct {
	requestID string
	component string
}

// New creates a logger with request context
func New(ctx context.Context, component string) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "-"
	}
	return &Logger{requestID: requestID, component: component}
}

// For creates a logger for background work that has no request.
func For(component string) *Logger {
	return &Logger{requestID: "-", component: component}
}

func (l *Logger) write(level int32, tag, operation, format string, args ...interface{}) {
	if level < minLevel.Load() {
		return
	}
	log.Printf("[%s] request_id=%s component=%s operation=%s "+format,
		append([]interface{}{tag, l.requestID, l.component, operation}, args...)...)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	l.write(levelError, "error", operation, "error=%v", err)
}

// LogErrorf logs a formatted error with context
func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.write(levelError, "error", operation, format, args...)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.write(levelInfo, "info", operation, format, args...)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.write(levelWarn, "warn", operation, format, args...)
}

// LogDebugf logs a formatted debug message with context
func (l *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	l.write(levelDebug, "debug", operation, format, args...)
}
