// Package zaplog adapts go.uber.org/zap to the vitals.Logger interface so
// applications already running zap can hand their logger to the SDK.
package zaplog

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/probeworks/vitals"
)

// Logger implements vitals.Logger on top of a *zap.Logger.
type Logger struct {
	base *zap.Logger
}

var _ vitals.Logger = (*Logger)(nil)

// New builds a production-configured logger at the given level ("debug",
// "info", "warn", "error").
func New(level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{base: base}, nil
}

// Wrap adapts an existing zap logger. A nil base degrades to a no-op logger.
func Wrap(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base.WithOptions(zap.AddCallerSkip(1))}
}

// Info implements vitals.Logger.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.base.Info(msg, zapFields(fields)...)
}

// Error implements vitals.Logger.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.base.Error(msg, zapFields(fields)...)
}

// Warn implements vitals.Logger.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.base.Warn(msg, zapFields(fields)...)
}

// Debug implements vitals.Logger.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.base.Debug(msg, zapFields(fields)...)
}

// Sync flushes buffered entries. Call it before process exit.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// zapFields converts the field map into sorted zap fields for deterministic
// output.
func zapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
