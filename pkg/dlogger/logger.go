// Package dlogger builds the zap loggers used by trellis commands.
//
// Levels are zap level names, plus "none" to discard all logs. Logs go to stderr,
// so command output on stdout may be piped.
package dlogger

import (
	"strings"

	"github.com/oneconcern/trellis/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by GetLogger
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelNone  = "none"
)

// ErrInvalidLevel is returned for unknown level names
var ErrInvalidLevel = errors.New("invalid log level")

// Levels lists the accepted level names, most verbose first
func Levels() []string {
	return []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelNone}
}

// GetLogger builds a console logger for some level name. An empty level logs nothing.
func GetLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == LogLevelNone || level == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, ErrInvalidLevel.WrapMessage("%q, expected one of %s", level, strings.Join(Levels(), ", "))
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	// commands are short-lived: keep every line, and stack traces only when debugging
	cfg.Sampling = nil
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel
	return cfg.Build()
}

// MustGetLogger is GetLogger, panicking on invalid levels
func MustGetLogger(level string) *zap.Logger {
	l, err := GetLogger(level)
	if err != nil {
		panic(err)
	}
	return l
}
