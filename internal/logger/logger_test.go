package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(&Config{Level: tt.level, Output: &bytes.Buffer{}})
			assert.True(t, l.Enabled(context.Background(), tt.expected))
			if tt.expected > slog.LevelDebug {
				assert.False(t, l.Enabled(context.Background(), tt.expected-4))
			}
		})
	}
}

func TestFromAddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, RunIDKey, "run-1")
	From(ctx, base).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "run-1", entry["run_id"])
}

func TestFromWithoutIDs(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Format: "text", Output: &buf})

	From(context.Background(), base).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "request_id")
}
