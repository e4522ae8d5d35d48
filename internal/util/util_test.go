package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	To      string `json:"to" description:"Recipient"`
	Subject string `json:"subject"`
	CC      string `json:"cc,omitempty"`
	Count   *int   `json:"count"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "to")
	assert.Contains(t, props, "cc")
	assert.Equal(t, "Recipient", props["to"].(map[string]any)["description"])
	assert.ElementsMatch(t, []string{"to", "subject"}, RequiredFields(schema))
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": float64(3)}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "nope"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")
}

func TestValidateParameters_GoBuiltSchema(t *testing.T) {
	err := ValidateParameters(map[string]any{"to": "a@b.c"}, CreateSchema(sampleArgs{}))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "subject", vErr.Field)
}

func TestStringParams(t *testing.T) {
	out := StringParams(map[string]any{"a": "x", "b": 2, "c": nil})
	assert.Equal(t, map[string]string{"a": "x", "b": "2", "c": ""}, out)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain <text>", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain <text>", out)

	out, err = RenderTemplate("{{ bullets .Items }}|{{ default \"none\" .Missing }}", map[string]any{
		"Items": []string{"a & b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "- a & b\n- c|none", out)

	_, err = RenderTemplate("{{ .Broken", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 4))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
