package config

import (
	"os"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_LevelFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
	})

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}

func TestNewLogger_DefaultsToInfo(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be disabled by default")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info level to be enabled by default")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "chatty")
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
	})

	_, err := NewLogger()
	if err == nil {
		t.Fatal("expected error for invalid level, got nil")
	}
}
