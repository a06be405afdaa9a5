package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug},
		{name: "info", input: "info", expected: slog.LevelInfo},
		{name: "warn", input: "warn", expected: slog.LevelWarn},
		{name: "warning alias", input: "WARNING", expected: slog.LevelWarn},
		{name: "error", input: "error", expected: slog.LevelError},
		{name: "mixed case", input: "Debug", expected: slog.LevelDebug},
		{name: "padded", input: "  info  ", expected: slog.LevelInfo},
		{name: "unknown defaults to info", input: "verbose", expected: slog.LevelInfo},
		{name: "empty defaults to info", input: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewStructuredLogger(t *testing.T) {
	logger := NewStructuredLogger("test-module", "v0.0.1", "debug")
	assert.NotNil(t, logger)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	logger = NewStructuredLogger("test-module", "v0.0.1", "error")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
}

func TestSetDefaultStructuredLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	SetDefaultStructuredLogger("test-module", "v0.0.1", "error")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))

	// Empty level falls back to LOG_LEVEL.
	t.Setenv("LOG_LEVEL", "debug")
	SetDefaultStructuredLogger("test-module", "v0.0.1", "")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}
