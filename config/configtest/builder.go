// Package configtest provides a fluent workflow configuration builder for
// tests.
package configtest

import (
	"github.com/hupe1980/agentfactory/config"
)

// WorkflowConfigBuilder builds workflow configurations for tests.
// Example:
//
//	cfg := NewWorkflowConfigBuilder("chain").Agent("writer", "content writer").Build()
//
// Model defaults to "test/model".
type WorkflowConfigBuilder struct {
	cfg config.WorkflowConfig
}

// NewWorkflowConfigBuilder creates a builder for the relations type pattern.
func NewWorkflowConfigBuilder(pattern string) *WorkflowConfigBuilder {
	return &WorkflowConfigBuilder{cfg: config.WorkflowConfig{
		RelationsType: pattern,
		ModelName:     "test/model",
	}}
}

// Objective sets the workflow objective (chainable).
func (b *WorkflowConfigBuilder) Objective(o string) *WorkflowConfigBuilder {
	b.cfg.Objective = o
	return b
}

// Model sets the workflow model identifier (chainable).
func (b *WorkflowConfigBuilder) Model(name string) *WorkflowConfigBuilder {
	b.cfg.ModelName = name
	return b
}

// APIKey sets the workflow credential (chainable).
func (b *WorkflowConfigBuilder) APIKey(key string) *WorkflowConfigBuilder {
	b.cfg.APIKey = key
	return b
}

// Agent appends an agent with name and persona (chainable).
func (b *WorkflowConfigBuilder) Agent(name, persona string) *WorkflowConfigBuilder {
	b.cfg.Agents = append(b.cfg.Agents, config.AgentConfig{Name: name, Persona: persona})
	return b
}

// AgentConfig appends a fully specified agent (chainable).
func (b *WorkflowConfigBuilder) AgentConfig(a config.AgentConfig) *WorkflowConfigBuilder {
	b.cfg.Agents = append(b.cfg.Agents, a)
	return b
}

// Toolkits sets the toolkits of the last added agent (chainable).
func (b *WorkflowConfigBuilder) Toolkits(kits ...string) *WorkflowConfigBuilder {
	if n := len(b.cfg.Agents); n > 0 {
		b.cfg.Agents[n-1].Toolkits = kits
	}
	return b
}

// Guidelines sets list guidelines on the last added agent (chainable).
func (b *WorkflowConfigBuilder) Guidelines(items ...string) *WorkflowConfigBuilder {
	if n := len(b.cfg.Agents); n > 0 {
		b.cfg.Agents[n-1].Guidelines = config.StringList{Values: items}
	}
	return b
}

// MCPServer adds an MCP server to the last added agent (chainable).
func (b *WorkflowConfigBuilder) MCPServer(s config.MCPConfig) *WorkflowConfigBuilder {
	if n := len(b.cfg.Agents); n > 0 {
		b.cfg.Agents[n-1].MCPServers = append(b.cfg.Agents[n-1].MCPServers, s)
	}
	return b
}

// Build returns a copy of the configuration.
func (b *WorkflowConfigBuilder) Build() *config.WorkflowConfig {
	cfg := b.cfg
	cfg.Agents = append([]config.AgentConfig(nil), b.cfg.Agents...)
	return &cfg
}
