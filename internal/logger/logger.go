// Package logger builds the process logger (zap wrapped as logr) and carries
// it through contexts.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerContextKey struct{}

const (
	TimeStampKey = "timestamp"
	MessageKey   = "message"
)

// Logger bundles the logr front end with the zap core for Sync.
type Logger struct {
	logr.Logger
	zap *zap.Logger
}

// New returns a JSON logger writing to stderr. verbose enables V(1) output.
func New(verbose bool) *Logger {
	return NewWithWriter(os.Stderr, verbose)
}

func NewWithWriter(w io.Writer, verbose bool) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = TimeStampKey
	encoderCfg.MessageKey = MessageKey

	level := zapcore.InfoLevel
	if verbose {
		// logr V(1) maps to zap level -1
		level = zapcore.Level(-1)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(level),
	)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	return &Logger{Logger: zapr.NewLogger(zl), zap: zl}
}

// Zap exposes the underlying zap logger for components that log through zap directly.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Sync flushes buffered entries; errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	if l == nil || l.zap == nil {
		return
	}
	if err := l.zap.Sync(); err != nil && !isIgnorableSyncError(err) {
		fmt.Fprintf(os.Stderr, "WARNING: failed to sync logger: %v\n", err)
	}
}

func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) ||
		errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF)
}

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}

// FromContext returns the logger carried by ctx, or a discard logger.
func FromContext(ctx context.Context) logr.Logger {
	if ctx == nil {
		return logr.Discard()
	}
	if log, err := logr.FromContext(ctx); err == nil {
		return log
	}
	return logr.Discard()
}
