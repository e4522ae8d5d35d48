package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentfactory/model"
)

type fakeConverse struct {
	input  *bedrockruntime.ConverseInput
	output *bedrockruntime.ConverseOutput
	err    error
}

func (f *fakeConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.output, f.err
}

func TestModel_Complete(t *testing.T) {
	fake := &fakeConverse{output: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "Hello from Bedrock!"}},
		}},
		StopReason: types.StopReasonEndTurn,
		Usage:      &types.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5)},
	}}

	m := newModelWithClient(fake, defaultOptions())

	resp, err := m.Complete(context.Background(), model.Request{
		Model:       "bedrock/anthropic.claude-3-haiku",
		Temperature: 0.7,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "You are helpful."},
			{Role: model.RoleUser, Content: "Hello"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello from Bedrock!", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(fake.input.ModelId))
	require.Len(t, fake.input.System, 1)
	require.Len(t, fake.input.Messages, 1)
	assert.InDelta(t, 0.7, aws.ToFloat32(fake.input.InferenceConfig.Temperature), 1e-6)
}

func TestModel_MapsErrors(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"ThrottlingException", model.ErrRateLimited},
		{"AccessDeniedException", model.ErrAuth},
		{"ServiceUnavailableException", model.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fake := &fakeConverse{err: &smithy.GenericAPIError{Code: tt.code, Message: "nope"}}

			_, err := newModelWithClient(fake, defaultOptions()).Complete(context.Background(), model.Request{})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	fake := &fakeConverse{err: errors.New("dial tcp")}
	_, err := newModelWithClient(fake, defaultOptions()).Complete(context.Background(), model.Request{})
	assert.ErrorContains(t, err, "bedrock api error: dial tcp")
}
