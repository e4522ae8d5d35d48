// Package factory turns a workflow configuration into runnable agents.
//
// An Environment carries everything a run needs (the tool registry, model
// credentials, trace sink, metrics). Build composes each agent's system
// prompt, connects its MCP servers, wires the command parser and trace
// emitter, and hands the agents to a workflow.Orchestrator.
package factory
