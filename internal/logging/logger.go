// Package logging builds the zap loggers used by commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger writing to stderr. With verbose set it is a
// development logger at debug level; otherwise a JSON logger that only
// reports warnings and errors, so stdout stays clean for documents.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Must is New that falls back to a no-op logger.
func Must(verbose bool) *zap.Logger {
	logger, err := New(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
