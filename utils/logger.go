package utils

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger provides leveled, printf-style logging throughout the application.
type Logger struct {
	s *zap.SugaredLogger
}

// NewLogger creates a Logger at the given level ("debug", "info", "warn",
// "error"). format "json" selects the production encoder, anything else the
// colored console encoder.
func NewLogger(level, format string) *Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewExample()
	}
	return &Logger{s: l.Sugar()}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// NewTestLogger routes output through t.Log.
func NewTestLogger(t testing.TB) *Logger {
	return &Logger{s: zaptest.NewLogger(t).Sugar()}
}

func parseLevel(raw string) zapcore.Level {
	switch raw {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.s.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.s.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.s.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.s.Debugf(format, args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.s.Sync()
}
