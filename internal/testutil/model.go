package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentfactory/model"
)

// ScriptedModel replays queued replies in order. Once the script is
// exhausted it echoes the last user message.
//
//	m := NewScriptedModel().Reply("hello").Fail(errors.New("boom"))
type ScriptedModel struct {
	mu       sync.Mutex
	steps    []step
	requests []model.Request
}

type step struct {
	reply string
	err   error
}

// NewScriptedModel creates an empty script.
func NewScriptedModel() *ScriptedModel { return &ScriptedModel{} }

// Reply queues a successful completion (chainable).
func (m *ScriptedModel) Reply(text string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step{reply: text})
	return m
}

// Fail queues a failing completion (chainable).
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step{err: err})
	return m
}

// Requests returns the recorded requests.
func (m *ScriptedModel) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Request(nil), m.requests...)
}

// Calls returns the number of Complete calls.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Complete implements model.Model.
func (m *ScriptedModel) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)

	var next *step
	if len(m.steps) > 0 {
		s := m.steps[0]
		m.steps = m.steps[1:]
		next = &s
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if next == nil {
		return &model.Response{Content: model.LastUserMessage(req.Messages), Model: req.Model}, nil
	}

	if next.err != nil {
		return nil, next.err
	}

	return &model.Response{Content: next.reply, Model: req.Model, FinishReason: "stop"}, nil
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test"}
}
