package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects and configures a logging backend.
type Options struct {
	Backend string // "slog" or "zap"
	Level   string // debug, info, warn, error
	Format  string // text or json, slog only
	File    string // optional rotating log file

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a Logger from opts. The returned close function releases the
// log file, if any, and must be called on shutdown.
func New(opts Options, stderr io.Writer) (Logger, func() error, error) {
	if stderr == nil {
		stderr = os.Stderr
	}

	var (
		out     io.Writer = stderr
		closeFn           = func() error { return nil }
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out = lj
		closeFn = lj.Close
	}

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		lvl, err := parseSlogLevel(opts.Level)
		if err != nil {
			return nil, nil, err
		}
		ho := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler
		if strings.EqualFold(opts.Format, "json") {
			h = slog.NewJSONHandler(out, ho)
		} else {
			h = slog.NewTextHandler(out, ho)
		}
		return NewSlogLogger(slog.New(h)), closeFn, nil

	case "zap":
		lvl, err := zapcore.ParseLevel(levelOrDefault(opts.Level))
		if err != nil {
			return nil, nil, fmt.Errorf("zap level: %w", err)
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.AddSync(out), lvl)
		zl := NewZapLogger(zap.New(core))
		return zl, func() error {
			_ = zl.Sync()
			return closeFn()
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown log backend %q", opts.Backend)
}

func levelOrDefault(s string) string {
	if s == "" {
		return "info"
	}
	return s
}

func parseSlogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(levelOrDefault(s))); err != nil {
		return 0, fmt.Errorf("slog level: %w", err)
	}
	return lvl, nil
}
