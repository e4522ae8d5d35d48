// Package tool implements the tool registry behind agent tool commands. The
// three built-in kinds (email, calendar event, social post) run against real
// providers when they are configured and fall back to simulated outcomes
// otherwise, so agent-facing text always reads as a completed action.
// Additional named tools (for example MCP bridged tools) live in a Scope over
// the registry and are reached through Scope.ExecuteByName or a CALL_TOOL
// command.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentfactory/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeUnknownTool = "UNKNOWN_TOOL"
	CodeUnavailable = "PROVIDER_UNAVAILABLE"
)

var (
	// ErrUnknownTool is returned when a tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrProviderUnavailable may be returned by a provider that cannot serve
	// a call (missing credentials, disabled backend). It yields a simulated outcome.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Tool is a named capability invocable through Scope.ExecuteByName.
type Tool interface {
	// Name returns the unique snake_case identifier of the tool.
	Name() string

	// Description returns a short human readable description.
	Description() string

	// Parameters returns the JSON schema of accepted arguments.
	Parameters() map[string]any

	// Call executes the tool and returns its textual result.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Descriptor describes a registered tool for catalogs and prompts.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Builtin     bool           `json:"builtin"`
}
