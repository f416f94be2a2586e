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

func TestConfig_LogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, Config{Level: in}.LogLevel(), in)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{Level: "info", Format: "json", ServiceName: "userapi", Version: "test"})

	l.Debug("hidden")
	l.Info("hello", "user_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "userapi", entry["service"])
	assert.Equal(t, "test", entry["version"])
	assert.Equal(t, "abc", entry["user_id"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{Format: "text"})
	l.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, Config{Format: "json"})

	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	FromContext(ctx, base).Info("scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])

	_, ok = RequestIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, base, FromContext(context.Background(), base))
}
