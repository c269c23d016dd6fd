package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatText)
	logger.SetLevel(DebugLevel)

	logger.Debug("Debug message", String("key", "value"))
	logger.Info("Info message", Int("count", 42))
	logger.Warn("Warning message", Bool("flag", true))
	logger.Error("Error message", ErrorField(errors.New("test error")))

	output := buf.String()
	for _, want := range []string{"Debug message", "Info message", "Warning message", "Error message", "key=value", "count=42", "flag=true", `error="test error"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatText)
	logger.SetLevel(WarnLevel)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "shown warn")
	assert.Equal(t, WarnLevel, logger.GetLevel())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON).WithFields(String("component", "transport"))

	logger.Info("call finished", String("method", "tools/list"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "call finished", entry["msg"])
	assert.Equal(t, "transport", entry["component"])
	assert.Equal(t, "tools/list", entry["method"])
	assert.Equal(t, "info", entry["level"])
}

func TestWithErrorExtractsMCPFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON)

	err := mcperrors.ForCall(mcperrors.ServerNotReady("tools/list", "created"), "tools/list", "http://a", 3)
	logger.WithError(err).Error("listing refused")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(mcperrors.CodeServerNotReady), entry["error_code"])
	assert.Equal(t, "state", entry["error_category"])
	assert.Equal(t, "tools/list", entry["method"])
	assert.Equal(t, float64(3), entry["request_id"])
}

func TestWithContextAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatText)

	ctx := ContextWithRunID(context.Background(), "run-123")
	assert.Equal(t, "run-123", RunIDFromContext(ctx))
	assert.Equal(t, "", RunIDFromContext(context.Background()))

	logger.WithContext(ctx).Info("started")
	assert.Contains(t, buf.String(), "run_id=run-123")
}

func TestParseLevelAndFormat(t *testing.T) {
	level, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	format, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, "ERROR", ErrorLevel.String())
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens", String("k", "v"))
	assert.Equal(t, FatalLevel, logger.GetLevel())
}
