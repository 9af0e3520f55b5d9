package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	errInvalidLevelFmt  = "invalid log level %q: %w"
	errInvalidFormatFmt = "invalid log format %q: expected json or console"
	errBuildLoggerFmt   = "failed to build logger: %w"
)

// New builds a zap logger for the given level (debug, info, warn, error)
// and format (json or console).
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf(errInvalidLevelFmt, level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf(errInvalidFormatFmt, format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf(errBuildLoggerFmt, err)
	}
	return l, nil
}

// Fields converts a sanitized map into zap fields in no particular order
func Fields(data map[string]interface{}) []zap.Field {
	clean := SanitizeMap(data)
	fields := make([]zap.Field, 0, len(clean))
	for k, v := range clean {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}
