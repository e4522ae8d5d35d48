package tool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentfactory/command"
)

func tenantTool(tenant string) *FunctionTool {
	return NewFunctionTool("mcp_crm_lookup", "Look up a customer", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (string, error) {
			return "served by " + tenant, nil
		})
}

func TestScope_IsolatesSameNamedTools(t *testing.T) {
	r := NewRegistry()
	a := r.NewScope()
	b := r.NewScope()

	require.NoError(t, a.Register(tenantTool("tenant-a")))
	require.NoError(t, b.Register(tenantTool("tenant-b")))
	assert.Error(t, a.Register(tenantTool("tenant-a")))

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, s := range []*Scope{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.ExecuteByName(context.Background(), "mcp_crm_lookup", nil).Status
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"served by tenant-a", "served by tenant-b"}, results)
	assert.Equal(t, StateFailed, r.ExecuteByName(context.Background(), "mcp_crm_lookup", nil).State)
	assert.Equal(t, []string{"mcp_crm_lookup"}, a.Names())
}

func TestScope_RegisteredTool(t *testing.T) {
	s := NewRegistry().NewScope()

	echo := NewFunctionTool("echo", "Echo text", map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []string{"text"},
	}, func(_ context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	})
	require.NoError(t, s.Register(echo))
	assert.Error(t, s.Register(echo))
	assert.Error(t, s.Register(NewFunctionTool("send_email", "", nil, nil)))

	out := s.ExecuteByName(context.Background(), "echo", map[string]any{"text": "ping"})
	assert.Equal(t, Outcome{Tool: "echo", State: StateSuccess, Status: "ping"}, out)

	out = s.ExecuteByName(context.Background(), "echo", map[string]any{})
	assert.Equal(t, StateFailed, out.State)
	assert.Contains(t, out.Status, "VALIDATION_ERROR")

	out = s.ExecuteByName(context.Background(), "post_tweet", map[string]any{"text": "hi"})
	assert.True(t, out.Simulated())

	names := []string{}
	for _, d := range s.Catalog() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"send_email", "create_calendar_event", "post_tweet", "echo"}, names)
}

func TestScope_CallCommand(t *testing.T) {
	s := NewRegistry().NewScope()
	require.NoError(t, s.Register(NewFunctionTool("echo", "Echo", map[string]any{
		"type":     "object",
		"required": []string{"text"},
	}, func(_ context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	})))

	out := s.Execute(context.Background(), command.KindCall, map[string]string{"name": "echo", "args": `{"text": "pong"}`})
	assert.Equal(t, Outcome{Tool: "echo", State: StateSuccess, Status: "pong"}, out)

	out = s.Execute(context.Background(), command.KindCall, map[string]string{"name": "echo", "args": `{}`})
	assert.True(t, out.Failed())
	assert.Contains(t, out.Status, "VALIDATION_ERROR")

	out = s.Execute(context.Background(), command.KindCall, map[string]string{"name": "nope", "args": `{}`})
	assert.Equal(t, "❌ Unknown tool: nope", out.Status)

	out = s.Execute(context.Background(), command.KindCall, map[string]string{"name": "send_email", "args": `{"to": "a@b.com", "subject": "S", "body": "B"}`})
	assert.True(t, out.Simulated())
}
