package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
}

func TestSlogLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer

	l := NewSlogLoggerTo(&buf, LogLevelInfo, "json", false)
	l.Debug("hidden")
	l.Info("visible", "k", "v")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestContextLogger_PrependsAttrs(t *testing.T) {
	var buf bytes.Buffer

	base := NewSlogLoggerTo(&buf, LogLevelDebug, "json", false)
	l := With(base, "component", "registry").With("agent", "writer")
	l.LogToolCall("send_email", "simulated", time.Millisecond, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "registry", entry["component"])
	assert.Equal(t, "writer", entry["agent"])
	assert.Equal(t, "send_email", entry["tool_name"])
	assert.Equal(t, "tool execution completed", entry["msg"])
}

func TestContextLogger_NilBase(t *testing.T) {
	l := With(nil, "k", "v")
	assert.NotPanics(t, func() {
		l.LogLLMCall("gpt-4o-mini", time.Second, errors.New("boom"))
		l.LogWorkflow("chain", 2, time.Second, nil)
	})
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapAdapter(zap.New(core))

	l.Warn("careful", "agent", "a")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "careful", entry.Message)
	assert.Equal(t, "a", entry.ContextMap()["agent"])
}
