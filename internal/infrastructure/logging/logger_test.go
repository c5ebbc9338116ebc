package logging

import (
	"log/slog"
	"testing"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	configs := []config.LoggingConfig{
		{Level: "info", Format: "json", Output: "stdout"},
		{Level: "debug", Format: "text", Output: "stderr"},
		{Level: "", Format: "", Output: ""},
	}

	for _, cfg := range configs {
		logger := New(cfg, "1.0.0")
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New(%+v) returned incomplete logger", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"DEBUG":   slog.LevelDebug,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWithReturnsChild(t *testing.T) {
	parent := Default()
	child := parent.With("component", "pipeline")

	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == parent {
		t.Error("With() should return a distinct logger")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil || logger.Logger == nil {
		t.Fatal("Default() returned incomplete logger")
	}
	if !logger.Enabled(nil, slog.LevelInfo) {
		t.Error("Default() should log at info")
	}
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Error("Default() should not log at debug")
	}
}
