// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentfactory/model"
)

// Options configures the Anthropic model adapter (model id, max tokens,
// API key).
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
	BaseURL   string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

func defaultOptions() Options {
	return Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}
}

// Complete implements model.Model. System messages travel in the dedicated
// system field; the rest alternate user/assistant.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	resp, err := m.client.Messages.New(ctx, m.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return &model.Response{
		Content:      text.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	system, rest := model.SplitSystem(req.Messages)

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, msg := range rest {
		if msg.Content == "" {
			continue
		}

		if msg.Role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}

		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}

	name := anthropic.Model(model.StripProvider(req.Model))
	if name == "" {
		name = m.opts.Model
	}

	maxTokens := m.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       name,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	return params
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     string(m.opts.Model),
		Provider: "anthropic",
	}
}
