// Package dlogger exposes zap loggers with log levels, for the server and for the CLI.
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelError only logs errors
	LogLevelError = "error"

	// LogLevelWarn logs warnings and errors
	LogLevelWarn = "warn"

	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

// GetLogger returns a zap logger emitting JSON with the specified level
func GetLogger(logLevel string) (*zap.Logger, error) {
	return build(zap.NewProductionConfig(), logLevel)
}

// GetCLILogger returns a console logger with the specified level, meant for humans
// reading the output of a command: no caller, no stack traces, short timestamps.
func GetCLILogger(logLevel string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return build(cfg, logLevel)
}

// IsValidLevel tells if a log level is known
func IsValidLevel(logLevel string) bool {
	switch logLevel {
	case LogLevelNone, LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug:
		return true
	default:
		return false
	}
}

func build(cfg zap.Config, logLevel string) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
