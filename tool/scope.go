package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentfactory/command"
)

// Scope overlays private named tools (for example MCP bridged tools) on a
// Registry. Built-in tools stay shared; tools registered on a Scope are
// visible only through it, so two scopes may hold different tools under the
// same name.
type Scope struct {
	base *Registry

	mu    sync.RWMutex
	tools map[string]Tool
}

// NewScope creates an empty Scope over r.
func (r *Registry) NewScope() *Scope {
	return &Scope{base: r, tools: make(map[string]Tool)}
}

// Register adds a tool to the scope. Built-in names and names already in the
// scope are rejected.
func (s *Scope) Register(t Tool) error {
	name := t.Name()
	if _, ok := command.KindForTool(name); ok {
		return fmt.Errorf("tool %q shadows a built-in tool", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tools[name]; ok {
		return fmt.Errorf("tool %q already registered", name)
	}

	s.tools[name] = t

	return nil
}

// Names returns the scope's own tool names, sorted.
func (s *Scope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedNames()
}

func (s *Scope) sortedNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Catalog lists the built-in tools followed by the scope's tools sorted by
// name.
func (s *Scope) Catalog() []Descriptor {
	out := s.base.Catalog()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.sortedNames() {
		t := s.tools[name]
		out = append(out, Descriptor{Name: name, Description: t.Description(), Parameters: t.Parameters()})
	}

	return out
}

// Execute runs a tool command. CALL_TOOL commands resolve scope tools first.
func (s *Scope) Execute(ctx context.Context, kind command.Kind, params map[string]string) Outcome {
	if kind == command.KindCall {
		return callCommand(ctx, params, s.ExecuteByName)
	}
	return s.base.Execute(ctx, kind, params)
}

// ExecuteByName runs a scope tool, or defers to the registry for built-in
// and unknown names.
func (s *Scope) ExecuteByName(ctx context.Context, name string, params map[string]any) Outcome {
	s.mu.RLock()
	t, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		return s.base.ExecuteByName(ctx, name, params)
	}

	if params == nil {
		params = map[string]any{}
	}

	return s.base.call(ctx, t, params)
}
