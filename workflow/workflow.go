// Package workflow runs a set of agents against one task under a
// collaboration pattern and composes their results.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentfactory/agent"
	"github.com/hupe1980/agentfactory/internal/metrics"
	"github.com/hupe1980/agentfactory/internal/telemetry"
	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/logging"
)

var (
	// ErrNoAgents is returned when a workflow is built without agents.
	ErrNoAgents = errors.New("no agents provided")
	// ErrDuplicateAgent is returned when two agents share a name.
	ErrDuplicateAgent = errors.New("duplicate agent name")
)

// SectionSeparator joins the per-agent sections of a composed result.
const SectionSeparator = "\n---\n\n"

// Agent is one participant of a workflow. *agent.Runtime implements it.
type Agent interface {
	Name() string
	Run(ctx context.Context, message string) (string, error)
}

// Step records one agent turn of a workflow run.
type Step struct {
	Agent    string
	Input    string
	Output   string
	Err      error
	Duration time.Duration
}

// Failed reports whether the turn failed.
func (s Step) Failed() bool { return s.Err != nil }

// Section renders the step as a labeled block of a composed result.
func (s Step) Section() string {
	if s.Err != nil {
		return fmt.Sprintf("**%s:** ❌ Failed - %s\n", s.Agent, failureText(s.Err))
	}
	return fmt.Sprintf("**%s:**\n%s\n", s.Agent, s.Output)
}

// Result is the outcome of a workflow run.
type Result struct {
	Pattern Pattern
	Output  string
	Steps   []Step
}

// Options configures an Orchestrator.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Collector
}

// Orchestrator drives agents under one pattern.
type Orchestrator struct {
	agents  []Agent
	pattern Pattern
	policy  policy
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// New creates an Orchestrator. Agents run in the given order.
func New(agents []Agent, pattern Pattern, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, ErrNoAgents
	}

	pol, ok := policies[pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}

	seen := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		if _, dup := seen[a.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.Name())
		}
		seen[a.Name()] = struct{}{}
	}

	return &Orchestrator{
		agents:  agents,
		pattern: pattern,
		policy:  pol,
		logger:  logging.With(opts.Logger, "component", "workflow", "pattern", string(pattern)),
		metrics: opts.Metrics,
	}, nil
}

// Pattern returns the collaboration pattern.
func (o *Orchestrator) Pattern() Pattern { return o.pattern }

// Agents returns the agent names in execution order.
func (o *Orchestrator) Agents() []string {
	names := make([]string, len(o.agents))
	for i, a := range o.agents {
		names[i] = a.Name()
	}
	return names
}

// Run executes the workflow on task. Patterns without failure isolation
// return the first agent error; isolating patterns never return an agent
// error and render failures inline instead.
func (o *Orchestrator) Run(ctx context.Context, task string) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "workflow.run",
		attribute.String("workflow.pattern", string(o.pattern)),
		attribute.Int("workflow.agents", len(o.agents)),
	)

	start := time.Now()
	res, err := o.run(ctx, task)
	dur := time.Since(start)

	status := "completed"
	if err != nil {
		status = "failed"
	}

	o.metrics.RecordWorkflow(string(o.pattern), status, dur)
	o.logger.LogWorkflow(string(o.pattern), len(o.agents), dur, err)
	telemetry.End(span, err)

	return res, err
}

func (o *Orchestrator) run(ctx context.Context, task string) (*Result, error) {
	agents := o.agents
	if o.policy.maxAgents > 0 && len(agents) > o.policy.maxAgents {
		agents = agents[:o.policy.maxAgents]
	}

	res := &Result{Pattern: o.pattern, Steps: make([]Step, 0, len(agents))}
	input := task

	for _, a := range agents {
		o.logger.Info("running agent", "agent", a.Name(), "input", util.Truncate(input, 100))

		start := time.Now()
		out, err := a.Run(ctx, input)
		step := Step{Agent: a.Name(), Input: input, Output: out, Err: err, Duration: time.Since(start)}
		res.Steps = append(res.Steps, step)

		if err != nil {
			if !o.policy.isolateFailures {
				return nil, fmt.Errorf("workflow %s failed at agent %s: %w", o.pattern, a.Name(), err)
			}
			o.logger.Error("agent failed", "agent", a.Name(), "error", err.Error())
			continue
		}

		o.logger.Info("agent completed", "agent", a.Name(), "output", util.Truncate(out, 100))

		switch o.policy.handoff {
		case handoffOutput:
			input = out
		case handoffManager:
			input = ManagerHandoff(a.Name(), out, task)
		}
	}

	if o.policy.compose {
		sections := make([]string, len(res.Steps))
		for i, s := range res.Steps {
			sections[i] = s.Section()
		}
		res.Output = strings.Join(sections, SectionSeparator)
	} else {
		res.Output = res.Steps[len(res.Steps)-1].Output
	}

	return res, nil
}

// ManagerHandoff frames a previous agent's output for the next agent of a
// manager workflow.
func ManagerHandoff(prevAgent, prevOutput, task string) string {
	return fmt.Sprintf("Previous agent (%s) output:\n%s\n\nOriginal task: %s\n\nContinue with your part of the workflow.",
		prevAgent, prevOutput, task)
}

// failureText strips the agent prefix of a turn error.
func failureText(err error) string {
	var turnErr *agent.TurnError
	if errors.As(err, &turnErr) && turnErr.Err != nil {
		return turnErr.Err.Error()
	}
	return err.Error()
}
