// Package config loads workflow definitions and the application
// configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentfactory/workflow"
)

var (
	// ErrNoAgents is returned for a workflow without agents.
	ErrNoAgents = workflow.ErrNoAgents
	// ErrUnknownPattern is returned for an unsupported relations type.
	ErrUnknownPattern = workflow.ErrUnknownPattern
	// ErrDuplicateAgent is returned when two agents share a name.
	ErrDuplicateAgent = workflow.ErrDuplicateAgent
)

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel error, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// StringList accepts either a single string or a list of strings.
type StringList struct {
	Values []string
	// Scalar is set when the source was a single string.
	Scalar bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = StringList{}
			return nil
		}
		*s = StringList{Values: []string{node.Value}, Scalar: true}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*s = StringList{Values: values}
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = StringList{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringList{Values: []string{v}, Scalar: true}
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = StringList{Values: values}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s StringList) MarshalJSON() ([]byte, error) {
	if s.Scalar && len(s.Values) == 1 {
		return json.Marshal(s.Values[0])
	}
	if s.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Values)
}

// Render returns a scalar verbatim and a list as "- a\n- b".
func (s StringList) Render() string {
	if s.Scalar {
		return strings.Join(s.Values, "\n")
	}
	if len(s.Values) == 0 {
		return ""
	}
	return "- " + strings.Join(s.Values, "\n- ")
}

// MCPConfig describes an MCP server attached to an agent.
type MCPConfig struct {
	Name string `yaml:"name" json:"name"`
	// ServerType is "sse" or "http" (streamable HTTP, the default).
	ServerType     string         `yaml:"server_type" json:"server_type"`
	Params         map[string]any `yaml:"params" json:"params"`
	URL            string         `yaml:"url" json:"url,omitempty"`
	TimeoutSeconds int            `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheToolsList *bool          `yaml:"cache_tools_list" json:"cache_tools_list,omitempty"`
}

// Endpoint returns params.url, falling back to url.
func (m MCPConfig) Endpoint() string {
	if u, ok := m.Params["url"].(string); ok && u != "" {
		return u
	}
	return m.URL
}

// Transport returns the normalized server type.
func (m MCPConfig) Transport() string {
	if strings.EqualFold(m.ServerType, "sse") {
		return "sse"
	}
	return "http"
}

// CachesToolsList reports whether the tool list is fetched once.
func (m MCPConfig) CachesToolsList() bool {
	return m.CacheToolsList == nil || *m.CacheToolsList
}

// AgentConfig describes one agent of a workflow.
type AgentConfig struct {
	Name       string         `yaml:"name" json:"name"`
	Persona    string         `yaml:"persona" json:"persona"`
	Output     string         `yaml:"output" json:"output"`
	Guidelines StringList     `yaml:"guidelines" json:"guidelines"`
	Toolkits   []string       `yaml:"toolkits" json:"toolkits"`
	MCPServers []MCPConfig    `yaml:"mcp_servers" json:"mcp_servers"`
	Context    map[string]any `yaml:"context" json:"context,omitempty"`
	// Model overrides the workflow model for this agent.
	Model string `yaml:"model" json:"model,omitempty"`
}

// WorkflowConfig is a complete workflow definition.
type WorkflowConfig struct {
	Objective     string        `yaml:"objective" json:"objective"`
	RelationsType string        `yaml:"relations_type" json:"relations_type"`
	ModelName     string        `yaml:"model_name" json:"model_name"`
	APIKey        string        `yaml:"api_key" json:"api_key,omitempty"`
	Agents        []AgentConfig `yaml:"agents" json:"agents"`
}

// Pattern returns the parsed relations type.
func (w *WorkflowConfig) Pattern() (workflow.Pattern, error) {
	return workflow.ParsePattern(w.RelationsType)
}

// ModelFor returns the model identifier of an agent.
func (w *WorkflowConfig) ModelFor(a AgentConfig) string {
	if a.Model != "" {
		return a.Model
	}
	return w.ModelName
}

// Validate checks the semantic rules the schema cannot express.
func (w *WorkflowConfig) Validate() error {
	if len(w.Agents) == 0 {
		return &ValidationError{Field: "agents", Message: "at least one agent is required", Err: ErrNoAgents}
	}

	if _, err := w.Pattern(); err != nil {
		return &ValidationError{Field: "relations_type", Message: err.Error(), Err: ErrUnknownPattern}
	}

	seen := make(map[string]struct{}, len(w.Agents))
	for i, a := range w.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("agents[%d].name", i), Message: "name is required"}
		}

		if _, dup := seen[a.Name]; dup {
			return &ValidationError{Field: fmt.Sprintf("agents[%d].name", i), Message: a.Name, Err: ErrDuplicateAgent}
		}
		seen[a.Name] = struct{}{}

		for j, s := range a.MCPServers {
			if s.Endpoint() == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("agents[%d].mcp_servers[%d]", i, j),
					Message: "URL is required",
				}
			}
		}
	}

	return nil
}

// ParseWorkflow decodes a YAML or JSON workflow, checks it against the
// workflow schema and validates it.
func ParseWorkflow(data []byte) (*WorkflowConfig, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg WorkflowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWorkflow reads and parses a workflow file.
func LoadWorkflow(path string) (*WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	cfg, err := ParseWorkflow(data)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}
