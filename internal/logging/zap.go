package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap.SugaredLogger to Logger. Context is accepted for
// interface parity and not inspected.
type ZapLogger struct {
	l *zap.SugaredLogger
}

func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l.Sugar()}
}

func (z *ZapLogger) Debug(_ context.Context, msg string, args ...any) {
	z.log(zapcore.DebugLevel, msg, args)
}

func (z *ZapLogger) Info(_ context.Context, msg string, args ...any) {
	z.log(zapcore.InfoLevel, msg, args)
}

func (z *ZapLogger) Warn(_ context.Context, msg string, args ...any) {
	z.log(zapcore.WarnLevel, msg, args)
}

func (z *ZapLogger) Error(_ context.Context, msg string, args ...any) {
	z.log(zapcore.ErrorLevel, msg, args)
}

func (z *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{l: z.l.With(Redact(args)...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.l.Sync()
}

func (z *ZapLogger) log(lvl zapcore.Level, msg string, args []any) {
	if !z.l.Desugar().Core().Enabled(lvl) {
		return
	}
	z.l.Logw(lvl, msg, Redact(args)...)
}
