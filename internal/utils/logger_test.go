package utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_KeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo("transfer", &buf)

	logger.Info("uploaded file", "key", "models/a", "bytes", 12, "error", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "transfer", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "uploaded file", entry["message"])
	assert.Equal(t, "models/a", entry["key"])
	assert.Equal(t, float64(12), entry["bytes"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_DanglingKeyDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo("test", &buf)

	logger.Warn("odd", "only-key")

	assert.NotContains(t, buf.String(), "only-key")
	assert.Contains(t, buf.String(), `"message":"odd"`)
}

func TestLogger_SetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo("test", &buf)
	logger.SetLogLevel(Error)

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Error("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}
