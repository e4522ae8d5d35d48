// Package gemini implements model.Model on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/agentfactory/model"
)

// generator abstracts genai.Models for testability.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the Gemini adapter.
type Options struct {
	Model  string
	APIKey string
}

// Model wraps the Gemini GenerateContent API.
type Model struct {
	models generator
	opts   Options
}

// NewModel creates a Gemini model. APIKey falls back to the SDK's
// GOOGLE_API_KEY / GEMINI_API_KEY lookup when empty.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{Model: "gemini-2.0-flash"}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Model{models: client.Models, opts: opts}, nil
}

func newModelWithGenerator(g generator, opts Options) *Model {
	return &Model{models: g, opts: opts}
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	system, rest := model.SplitSystem(req.Messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		role := genai.Role(genai.RoleUser)
		if msg.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	temperature := float32(req.Temperature)

	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	name := model.StripProvider(model.NormalizeName(req.Model))
	if name == "" {
		name = m.opts.Model
	}

	resp, err := m.models.GenerateContent(ctx, name, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	out := &model.Response{Content: resp.Text(), Model: name}

	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out, nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini"}
}
