// Package parser scans agent output for tool commands, executes them through
// a tool executor and splices the outcomes back into the text.
package parser

import (
	"context"
	"strings"

	"github.com/hupe1980/agentfactory/command"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/tool"
)

// Executor runs one tool command. *tool.Registry and *tool.Scope implement it.
type Executor interface {
	Execute(ctx context.Context, kind command.Kind, params map[string]string) tool.Outcome
}

// Options configures a CommandParser.
type Options struct {
	Logger logging.Logger
	// Kinds are scanned in the given order. Defaults to command.Kinds.
	Kinds []command.Kind
}

// CommandParser rewrites agent output by executing embedded tool commands.
type CommandParser struct {
	exec   Executor
	kinds  []command.Kind
	logger logging.Logger
}

// New creates a CommandParser backed by exec.
func New(exec Executor, optFns ...func(o *Options)) *CommandParser {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Kinds:  command.Kinds,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &CommandParser{
		exec:   exec,
		kinds:  opts.Kinds,
		logger: logging.With(opts.Logger, "component", "command_parser"),
	}
}

// ParseAndExecute executes every command found in text and returns the
// rewritten text together with the outcomes in execution order.
//
// Kinds are processed in the configured order, by default email, calendar
// then tweet. Matches are located in the original text; each outcome replaces
// the first remaining occurrence of the matched span in the working copy.
// Commands run even if an earlier replacement already consumed their span.
func (p *CommandParser) ParseAndExecute(ctx context.Context, text string) (string, []tool.Outcome) {
	var outcomes []tool.Outcome

	rewritten := text

	for _, kind := range p.kinds {
		for _, cmd := range command.Scan(text, kind) {
			name := kind.ToolName()
			if kind == command.KindCall {
				name = cmd.Params["name"]
			}

			p.logger.Info("tool command detected", "kind", kind.String(), "tool_name", name)

			out := p.exec.Execute(ctx, kind, cmd.Params)
			outcomes = append(outcomes, out)

			rewritten = strings.Replace(rewritten, cmd.Span, out.Status, 1)
		}
	}

	if len(outcomes) == 0 {
		p.logger.Debug("no tool commands detected")
	} else {
		p.logger.Info("tool commands executed", "count", len(outcomes))
	}

	return rewritten, outcomes
}
