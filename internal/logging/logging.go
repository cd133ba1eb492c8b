// Package logging configures the zap logger every other package receives
// by dependency injection; nothing in this module reaches for a package
// global logger.
package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a configured zap.SugaredLogger for the given level string.
// Use "debug", "info", "warn", "error" (case-insensitive); anything else
// falls back to "info".
//
// Sampling is enabled because scheduler.go logs an RX timeout or a
// transmit retry at most once per PDU per tick, and a tick can be as
// short as a few milliseconds: an unhealthy bus would otherwise flood
// stdout at the tick rate instead of at a rate a human can read.
func New(level string) *zap.SugaredLogger {
	zapLevel := levelFromString(level)

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
			Tick:       time.Second,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}

	logger, err := config.Build()
	if err != nil {
		panic("cannot initialize logger: " + err.Error())
	}

	return logger.Sugar()
}

func levelFromString(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
