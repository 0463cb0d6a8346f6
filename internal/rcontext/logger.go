// Package rcontext carries a structured logger on a context.Context, the
// way the core packages expect to find one on every blocking operation.
package rcontext

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   = logrus.StandardLogger().WithField("component", "r3")
	defaultLoggerMu sync.RWMutex
)

// Logger is the leveled-logging interface carried on a context.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	WithError(err error) *logrus.Entry
	WithField(key string, value any) *logrus.Entry
}

type loggerKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger attached to ctx, falling back to the
// process-wide default logger if none was attached.
func GetLogger(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}

	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// WithField returns a logger derived from ctx's logger with an extra field,
// without mutating ctx.
func WithField(ctx context.Context, key string, value any) Logger {
	return GetLogger(ctx).WithField(key, fmt.Sprint(value))
}

// SetDefaultLogger replaces the fallback logger used when no logger has
// been attached to a context, e.g. to raise the process log level from the
// CLI's --verbose flag.
func SetDefaultLogger(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}
