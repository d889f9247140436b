// Package zapadapter carries request ids through contexts and forwards pgx logs to a zap.Logger,
// tagging each entry with the id of the request that caused it.
package zapadapter

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key struct{}

var requestIDKey key

// NewContextWithID returns a copy of ctx carrying the request id
func NewContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// IDFromContext returns the request id stored in ctx, if any
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// Sugared returns logger annotated with the request id of ctx when there is one
func Sugared(ctx context.Context, logger *zap.SugaredLogger) *zap.SugaredLogger {
	if id, ok := IDFromContext(ctx); ok {
		return logger.With("request_id", id)
	}
	return logger
}

// Logger implements pgx.Logger
type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *Logger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 0, len(data)+1)
	if id, ok := IDFromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case pgx.LogLevelTrace, pgx.LogLevelDebug:
		l.logger.Debug(msg, fields...)
	case pgx.LogLevelInfo:
		// every query is logged at info level by pgx; keep them out of production logs
		l.logger.Debug(msg, fields...)
	case pgx.LogLevelWarn:
		l.logger.Warn(msg, fields...)
	case pgx.LogLevelError:
		l.logger.Error(msg, fields...)
	default:
		l.logger.Error(msg, append(fields, zap.Stringer("PGX_LOG_LEVEL", level))...)
	}
}
