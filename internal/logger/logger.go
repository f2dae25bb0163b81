package logger

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the process logger is built.
type Options struct {
	Level       string // debug, info, warn, error
	Format      string // json, console
	Development bool
}

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Init builds the process logger. Calling it again replaces the previous one.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return err
		}
	}

	cfg := zap.NewProductionConfig()
	if opts.Development || opts.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	Set(l)
	l.Info("logger initialized", zap.String("level", level.String()))
	return nil
}

// Set swaps the process logger. Tests use it with zaptest/observer cores.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// L returns the process logger for callers that want zap fields directly.
func L() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered entries.
func Sync() {
	_ = current.Load().Sync()
}

func Debug(msg string, fields map[string]any) {
	current.Load().Debug(msg, toZap(fields)...)
}

func Info(msg string, fields map[string]any) {
	current.Load().Info(msg, toZap(fields)...)
}

func Warn(msg string, fields map[string]any) {
	current.Load().Warn(msg, toZap(fields)...)
}

func Error(msg string, fields map[string]any) {
	current.Load().Error(msg, toZap(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	current.Load().Error(msg, toZap(fields)...)
	Sync()
	os.Exit(1)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
