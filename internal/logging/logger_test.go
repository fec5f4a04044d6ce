package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewQuietByDefault(t *testing.T) {
	logger, err := New(false)
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("default logger should not log info")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("default logger should log warnings")
	}
}

func TestNewVerbose(t *testing.T) {
	logger := Must(true)
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should log debug")
	}
}
