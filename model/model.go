package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem carries the system instructions.
	RoleSystem Role = "system"
	// RoleUser is a user turn.
	RoleUser Role = "user"
	// RoleAssistant is a model turn.
	RoleAssistant Role = "assistant"
)

// Message is one entry of a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int64     `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed model answer.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the completion interface consumed by agents.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Func adapts a function to the Model interface.
type Func func(ctx context.Context, req Request) (*Response, error)

// Complete implements Model.
func (f Func) Complete(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Info implements Model.
func (f Func) Info() Info { return Info{Name: "func", Provider: "func"} }

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line.
func SplitSystem(msgs []Message) (string, []Message) {
	var (
		system []string
		rest   = make([]Message, 0, len(msgs))
	)

	for _, m := range msgs {
		if m.Role == RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}

	return strings.Join(system, "\n\n"), rest
}

// LastUserMessage returns the content of the last user message.
func LastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It records every request it receives.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for a user prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[prompt] = response
}

// Requests returns a copy of the recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Complete implements Model. Unknown prompts yield "Mock response to: <prompt>".
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	prompt := LastUserMessage(req.Messages)

	full, ok := m.responses[prompt]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", prompt)
	}

	return &Response{Content: full, Model: m.info.Name, FinishReason: "stop"}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// Provider error classes. Adapters wrap vendor errors with these so callers
// can classify failures without importing SDKs.
var (
	ErrRateLimited = errors.New("model rate limited")
	ErrAuth        = errors.New("model authentication failed")
	ErrUnavailable = errors.New("model unavailable")
)
