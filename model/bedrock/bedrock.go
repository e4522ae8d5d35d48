// Package bedrock implements model.Model with the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/agentfactory/model"
)

// converseAPI abstracts the Bedrock runtime client for testability.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	Model     string
	Region    string
	MaxTokens int32
}

// Model wraps Bedrock Converse.
type Model struct {
	client converseAPI
	opts   Options
}

// NewModel loads the default AWS credential chain and creates a Model.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Model{client: bedrockruntime.NewFromConfig(cfg), opts: opts}, nil
}

func newModelWithClient(client converseAPI, opts Options) *Model {
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:     "anthropic.claude-3-5-haiku-20241022-v1:0",
		Region:    "us-east-1",
		MaxTokens: 4096,
	}
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	input := m.toConverseInput(req)

	output, err := m.client.Converse(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &model.Response{Model: aws.ToString(input.ModelId), FinishReason: string(output.StopReason)}

	if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
		var text strings.Builder
		for _, block := range msg.Value.Content {
			if b, ok := block.(*types.ContentBlockMemberText); ok {
				text.WriteString(b.Value)
			}
		}
		resp.Content = text.String()
	}

	if u := output.Usage; u != nil {
		in, out := int(aws.ToInt32(u.InputTokens)), int(aws.ToInt32(u.OutputTokens))
		resp.Usage = &model.TokenUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}

	return resp, nil
}

func (m *Model) toConverseInput(req model.Request) *bedrockruntime.ConverseInput {
	system, rest := model.SplitSystem(req.Messages)

	name := model.StripProvider(req.Model)
	if name == "" {
		name = m.opts.Model
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(name),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(m.opts.MaxTokens),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}

	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}

	for _, msg := range rest {
		role := types.ConversationRoleUser
		if msg.Role == model.RoleAssistant {
			role = types.ConversationRoleAssistant
		}

		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
		})
	}

	return input
}

func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("%w: %s", model.ErrRateLimited, err)
		case "AccessDeniedException", "UnrecognizedClientException":
			return fmt.Errorf("%w: %s", model.ErrAuth, err)
		case "ModelNotReadyException", "ServiceUnavailableException", "InternalServerException":
			return fmt.Errorf("%w: %s", model.ErrUnavailable, err)
		}
	}

	return fmt.Errorf("bedrock api error: %w", err)
}

// Info returns metadata describing this Bedrock model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "bedrock"}
}
