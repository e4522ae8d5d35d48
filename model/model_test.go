package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMockModel(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hi", "hello")

	resp, err := m.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "hi"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)

	resp, err = m.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "other"}}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Content)
	assert.Len(t, m.Requests(), 2)

	_, err = m.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "x"},
	})

	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "u"}, {Role: RoleAssistant, Content: "x"}}, rest)
}

func TestNormalizeAndProvider(t *testing.T) {
	tests := []struct {
		in       string
		norm     string
		provider string
	}{
		{"gemini-2.0-flash", "gemini/gemini-2.0-flash", "gemini"},
		{"gemini/gemini-1.5-pro", "gemini/gemini-1.5-pro", "gemini"},
		{"gpt-4o-mini", "gpt-4o-mini", "openai"},
		{"claude-3-5-sonnet-latest", "claude-3-5-sonnet-latest", "anthropic"},
		{"bedrock/anthropic.claude-3-haiku", "bedrock/anthropic.claude-3-haiku", "bedrock"},
		{"llama3", "llama3", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.norm, NormalizeName(tt.in))
			assert.Equal(t, tt.provider, ProviderOf(tt.in))
		})
	}

	assert.Equal(t, "anthropic.claude-3-haiku", StripProvider("bedrock/anthropic.claude-3-haiku"))
	assert.Equal(t, "gpt-4o", StripProvider("gpt-4o"))
}

func TestRouter(t *testing.T) {
	openai := NewMockModel("gpt", "openai")
	gemini := NewMockModel("gemini", "gemini")

	r := NewRouter()
	r.Register("openai", openai)
	r.Register("gemini", gemini)

	_, err := r.Complete(context.Background(), Request{Model: "gemini-2.0-flash", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	require.Len(t, gemini.Requests(), 1)
	assert.Equal(t, "gemini/gemini-2.0-flash", gemini.Requests()[0].Model)
	assert.Empty(t, openai.Requests())

	_, err = r.Complete(context.Background(), Request{Model: "llama3", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, ErrNoProvider)

	r.SetFallback(openai)
	_, err = r.Complete(context.Background(), Request{Model: "llama3", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.NoError(t, err)
	assert.Equal(t, []string{"gemini", "openai"}, r.Providers())
}

func TestWithRateLimit(t *testing.T) {
	m := WithRateLimit(NewMockModel("m", "p"), rate.NewLimiter(rate.Every(time.Hour), 1))

	req := Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}
	_, err := m.Complete(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = m.Complete(ctx, req)
	assert.Error(t, err)
	assert.Equal(t, "p", m.Info().Provider)
}

func TestWithCircuitBreaker(t *testing.T) {
	calls := 0
	failing := Func(func(context.Context, Request) (*Response, error) {
		calls++
		return nil, errors.New("503")
	})

	m := WithCircuitBreaker(failing, BreakerOptions{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := m.Complete(context.Background(), Request{})
		assert.EqualError(t, err, "503")
	}

	_, err := m.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}
