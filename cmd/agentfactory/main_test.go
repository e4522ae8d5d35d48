package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentfactory/tool"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		mockModels = false
		runVerbose = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestToolCommand_SimulatesWithoutCredentials(t *testing.T) {
	out, err := execute(t, "tool", "post_tweet", "text=Shipping today", "--mock", "--log-level", "error")
	require.NoError(t, err)

	var outcome tool.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, tool.StateSimulated, outcome.State)
	assert.Contains(t, outcome.Status, "Shipping today")
}

func TestToolCommand_InvalidParameter(t *testing.T) {
	_, err := execute(t, "tool", "post_tweet", "text", "--mock")
	assert.ErrorContains(t, err, "want key=value")
}

func TestRunCommand_MockModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
relations_type: chain
model_name: gemini-2.5-flash
agents:
  - name: writer
    persona: content writer
  - name: editor
    persona: copy editor
`), 0o600))

	out, err := execute(t, "run", path, "hello", "--mock", "--log-level", "error", "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "== writer")
	assert.Contains(t, out, "== editor")
	assert.Contains(t, out, "Mock response to: Mock response to: hello")
}

func TestRunCommand_MissingWorkflow(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"), "task", "--mock")
	assert.ErrorContains(t, err, "read workflow")
}
