// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It is a no-op until InitLogger or Use runs.
var L = zap.NewNop()

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// InitLogger installs a production logger as L so startup errors are
// reported before configuration has been read.
func InitLogger() {
	logger, err := New(false)
	if err != nil {
		return
	}
	Use(logger)
}

// Use replaces L and the zap globals with logger.
func Use(logger *zap.Logger) {
	if logger == nil {
		return
	}
	L = logger
	zap.ReplaceGlobals(logger)
}
