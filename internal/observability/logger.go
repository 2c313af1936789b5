// Package observability builds the daemon logger.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evan-idocoding/mexec/internal/config"
)

// Logger is a configured zap logger together with its adjustable level.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel

	closers []func() error
}

// Close flushes the logger and closes file outputs.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	var first error
	for _, c := range l.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewLogger builds a logger from c without installing it globally.
func NewLogger(c config.LogConfig) (*Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(c.Level))

	encCfg := encoderConfig(c.Development)
	var encoder zapcore.Encoder
	if strings.EqualFold(c.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	l := &Logger{Level: level}
	cores := make([]zapcore.Core, 0, len(outputs))
	for _, out := range outputs {
		switch strings.ToLower(out) {
		case "stdout":
			cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
		case "stderr":
			cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
		default:
			ws, closer, err := fileSink(out, c)
			if err != nil {
				for _, cl := range l.closers {
					_ = cl()
				}
				return nil, err
			}
			l.closers = append(l.closers, closer)
			cores = append(cores, zapcore.NewCore(encoder, ws, level))
		}
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}
	l.Logger = zap.New(zapcore.NewTee(cores...), opts...)
	return l, nil
}

// Setup builds a logger from c, sets it as the global zap logger and redirects the stdlib
// log package until Close. The caller should defer Close.
func Setup(c config.LogConfig) (*Logger, error) {
	l, err := NewLogger(c)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l.Logger)
	if restore, err := zap.RedirectStdLogAt(l.Logger, zap.InfoLevel); err == nil {
		l.closers = append([]func() error{func() error { restore(); return nil }}, l.closers...)
	}
	return l, nil
}

// ParseLevel maps debug/info/warn/warning/error to a zap level. Unknown values map to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// fileSink opens out for appending. With rotation enabled the file is managed by lumberjack;
// rotation.filename, when set, replaces out.
func fileSink(out string, c config.LogConfig) (zapcore.WriteSyncer, func() error, error) {
	if c.Rotation.Enable {
		name := out
		if f := strings.TrimSpace(c.Rotation.Filename); f != "" {
			name = f
		}
		lj := &lumberjack.Logger{
			Filename:   name,
			MaxSize:    max(c.Rotation.MaxSizeMB, 1),
			MaxBackups: max(c.Rotation.MaxBackups, 1),
			MaxAge:     max(c.Rotation.MaxAgeDays, 1),
			Compress:   c.Rotation.Compress,
		}
		return zapcore.AddSync(lj), lj.Close, nil
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("log output %q: %w", out, err)
		}
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log output %q: %w", out, err)
	}
	return zapcore.Lock(f), f.Close, nil
}

func encoderConfig(dev bool) zapcore.EncoderConfig {
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
