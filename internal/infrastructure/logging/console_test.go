package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/config"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, nil)).With(ComponentKey, "reconcile")

	logger.Info("Statement reconciled", "statement_id", "s1", "transactions", 2)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO] [reconcile] ["), line)
	assert.Contains(t, line, "] Statement reconciled statement_id=s1 transactions=2\n")
	assert.NotContains(t, line, "component=")
}

func TestConsoleHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")
	logger.Error("shown too", "error", errors.New("disk full"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, `[ERROR]`)
	assert.Contains(t, out, `error="disk full"`)
}

func TestConsoleHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, nil)).WithGroup("http").With("method", "GET")

	logger.Info("request", "path", "/api/stats", slog.Group("client", "ip", "10.0.0.1"), "note", "two words", "took", 1500*time.Microsecond)

	out := buf.String()
	assert.Contains(t, out, "http.method=GET")
	assert.Contains(t, out, "http.path=/api/stats")
	assert.Contains(t, out, "http.client.ip=10.0.0.1")
	assert.Contains(t, out, `http.note="two words"`)
	assert.Contains(t, out, "http.took=1.5ms")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.Debug("audit clean", "statements", 4)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "audit clean", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, float64(4), record["statements"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
