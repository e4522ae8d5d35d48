package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentfactory/model"
)

func TestModel_Complete(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})

	resp, err := m.Complete(context.Background(), model.Request{
		Model:       "claude-3-5-haiku-latest",
		Temperature: 0.7,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "persona"},
			{Role: model.RoleUser, Content: "first"},
			{Role: model.RoleAssistant, Content: "reply"},
			{Role: model.RoleUser, Content: "second"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)

	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	msgs := got["messages"].([]any)
	assert.Len(t, msgs, 3)

	system := got["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "persona", system[0].(map[string]any)["text"])
}
