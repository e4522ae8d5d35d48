package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		toolkits []string
		persona  string
		want     bool
	}{
		{"toolkit", []string{"gmail"}, "researcher", true},
		{"email keyword", nil, "Email assistant", true},
		{"notify keyword", nil, "agent that will NOTIFY people", true},
		{"post keyword", nil, "social media poster", true},
		{"plain", nil, "market researcher", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToolsEnabled(tt.toolkits, tt.persona))
		})
	}
}

func TestFormatGuidelines(t *testing.T) {
	assert.Equal(t, "- a\n- b", FormatGuidelines([]string{"a", "b"}))
	assert.Empty(t, FormatGuidelines(nil))
}

func TestBuildInstructions(t *testing.T) {
	now := time.Date(2025, 10, 5, 14, 3, 9, 0, time.UTC)

	prompt, err := BuildInstructions(PromptSpec{
		Persona:          "notifier that sends email updates",
		Guidelines:       FormatGuidelines([]string{"be brief", "be kind"}),
		Output:           "A short summary",
		Context:          map[string]any{SystemContextKey: "- Workflow: daily digest\n", "team": "ops"},
		ToolsEnabled:     true,
		DefaultRecipient: "team@example.com",
		Capabilities:     []string{"search: web search"},
		Now:              now,
	})
	require.NoError(t, err)

	assert.True(t, len(prompt) > 0)
	assert.Contains(t, prompt, "You are a notifier that sends email updates")
	assert.Contains(t, prompt, "SEND_EMAIL: to=")
	assert.Contains(t, prompt, "CREATE_EVENT: title=")
	assert.Contains(t, prompt, "POST_TWEET: text=")
	assert.Contains(t, prompt, "DEFAULT EMAIL RECIPIENT: team@example.com")
	assert.Contains(t, prompt, "CRITICAL INSTRUCTIONS:")
	assert.Contains(t, prompt, "TOOL SIMULATION")
	assert.Contains(t, prompt, "Guidelines:\n- be brief\n- be kind")
	assert.Contains(t, prompt, "Expected output format:\nA short summary")
	assert.Contains(t, prompt, "- The time is: Sun Oct  5 14:03:09 2025")
	assert.Contains(t, prompt, "- team: ops")
	assert.Contains(t, prompt, "- Workflow: daily digest")
	assert.Contains(t, prompt, "- search: web search")
	assert.Contains(t, prompt, "CALL_TOOL: name=tool_name | args=")
}

func TestBuildInstructions_NoTools(t *testing.T) {
	prompt, err := BuildInstructions(PromptSpec{
		Persona:          "market researcher",
		Output:           "report",
		DefaultRecipient: "team@example.com",
	})
	require.NoError(t, err)

	assert.NotContains(t, prompt, "AVAILABLE TOOLS")
	assert.NotContains(t, prompt, "DEFAULT EMAIL RECIPIENT")
	assert.NotContains(t, prompt, "CALL_TOOL")
	assert.Contains(t, prompt, "- The time is: ")
}
