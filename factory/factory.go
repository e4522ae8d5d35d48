package factory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentfactory/agent"
	"github.com/hupe1980/agentfactory/command"
	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/internal/metrics"
	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/mcp"
	"github.com/hupe1980/agentfactory/model"
	"github.com/hupe1980/agentfactory/parser"
	"github.com/hupe1980/agentfactory/tool"
	"github.com/hupe1980/agentfactory/trace"
	"github.com/hupe1980/agentfactory/workflow"
)

// ErrNoModels is returned by NewEnvironment without a model source.
var ErrNoModels = errors.New("factory: no model source")

const systemTimeLayout = "2006-01-02 15:04:05"

// Options configures an Environment.
type Options struct {
	// Tools executes tool commands. Nil creates a registry without
	// providers, so every command is simulated.
	Tools *tool.Registry
	// Sink receives agent trace records. Nil disables tracing.
	Sink    trace.Sink
	Metrics *metrics.Collector
	Logger  logging.Logger
	// DefaultRecipient is announced to email and notifier agents.
	DefaultRecipient string
	// DefaultModel serves agents of workflows without a model_name.
	DefaultModel string
	// MCP options are passed to every mcp.Connect call.
	MCP []func(o *mcp.Options)
	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// Environment is the explicit context shared by workflow runs. It replaces
// process-wide globals: credentials and the user id travel with each build.
type Environment struct {
	models ModelSource
	opts   Options
	logger *logging.ContextLogger
}

// NewEnvironment creates an Environment resolving models through models.
func NewEnvironment(models ModelSource, optFns ...func(o *Options)) (*Environment, error) {
	if models == nil {
		return nil, ErrNoModels
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
		NewID:  util.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(func(o *tool.Options) {
			o.Logger = opts.Logger
		})
	}

	return &Environment{
		models: models,
		opts:   opts,
		logger: logging.With(opts.Logger, "component", "factory"),
	}, nil
}

// Tools returns the shared tool registry.
func (e *Environment) Tools() *tool.Registry { return e.opts.Tools }

// Workflow is a built, runnable workflow. Each agent sees its MCP tools
// through a private tool.Scope; Close releases the MCP connections.
type Workflow struct {
	ID     string
	UserID string
	Config *config.WorkflowConfig
	// Overview describes the agents for a manager.
	Overview     string
	Orchestrator *workflow.Orchestrator
	Agents       []*agent.Runtime

	scopes    map[string]*tool.Scope
	bridges   []*mcp.Bridge
	closeOnce sync.Once
}

// Tools returns the tool scope of the named agent.
func (w *Workflow) Tools(agentName string) (*tool.Scope, bool) {
	s, ok := w.scopes[agentName]
	return s, ok
}

// Run executes the workflow on task.
func (w *Workflow) Run(ctx context.Context, task string) (*workflow.Result, error) {
	return w.Orchestrator.Run(ctx, task)
}

// Close closes the workflow's MCP connections. It is safe to call more
// than once.
func (w *Workflow) Close() {
	w.closeOnce.Do(func() {
		for _, b := range w.bridges {
			b.Close()
		}
	})
}

// Build creates the agents of cfg for userID and wires them into an
// orchestrator.
func (e *Environment) Build(ctx context.Context, cfg *config.WorkflowConfig, userID string) (*Workflow, error) {
	if cfg == nil {
		return nil, config.ErrNoAgents
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pattern, err := cfg.Pattern()
	if err != nil {
		return nil, err
	}

	w := &Workflow{
		ID:       e.opts.NewID(),
		UserID:   userID,
		Config:   cfg,
		Overview: Overview(cfg.Agents),
		scopes:   make(map[string]*tool.Scope, len(cfg.Agents)),
	}

	logger := logging.With(e.opts.Logger, "workflow_id", w.ID)

	emitter := trace.NewEmitter(e.opts.Sink, func(o *trace.EmitterOptions) {
		o.Logger = e.opts.Logger
		o.OnError = func(kind string, _ error) {
			e.opts.Metrics.RecordTraceSinkError(kind)
		}
	})

	members := make([]workflow.Agent, 0, len(cfg.Agents))

	for _, ac := range cfg.Agents {
		rt, err := e.buildAgent(ctx, w, ac, emitter, logger)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("build agent %s: %w", ac.Name, err)
		}

		w.Agents = append(w.Agents, rt)
		members = append(members, rt)
	}

	w.Orchestrator, err = workflow.New(members, pattern, func(o *workflow.Options) {
		o.Logger = logger
		o.Metrics = e.opts.Metrics
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	e.logger.Info("workflow built",
		"workflow_id", w.ID,
		"pattern", string(pattern),
		"agents", len(w.Agents),
	)
	e.logger.Debug("manager overview", "workflow_id", w.ID, "overview", w.Overview)

	return w, nil
}

func (e *Environment) buildAgent(ctx context.Context, w *Workflow, ac config.AgentConfig, emitter *trace.Emitter, logger logging.Logger) (*agent.Runtime, error) {
	now := e.opts.Now()

	var capabilities []string

	scope := e.opts.Tools.NewScope()
	w.scopes[ac.Name] = scope

	if len(ac.MCPServers) > 0 {
		bridge := mcp.Connect(ctx, ac.Name, ac.MCPServers, append([]func(o *mcp.Options){
			func(o *mcp.Options) { o.Logger = e.opts.Logger },
		}, e.opts.MCP...)...)
		w.bridges = append(w.bridges, bridge)

		for _, t := range bridge.Tools(ctx) {
			if err := scope.Register(t); err != nil {
				return nil, fmt.Errorf("register mcp tool: %w", err)
			}
		}

		capabilities = bridge.Capabilities(ctx)
	}

	agentContext := maps.Clone(ac.Context)
	if agentContext == nil {
		agentContext = make(map[string]any, 1)
	}

	if _, ok := agentContext[agent.SystemContextKey]; !ok {
		agentContext[agent.SystemContextKey] = "The time is " + now.Format(systemTimeLayout)
	}

	toolsEnabled := agent.ToolsEnabled(ac.Toolkits, ac.Persona)

	instructions, err := agent.BuildInstructions(agent.PromptSpec{
		Persona:          ac.Persona,
		Guidelines:       ac.Guidelines.Render(),
		Output:           ac.Output,
		Context:          agentContext,
		ToolsEnabled:     toolsEnabled,
		DefaultRecipient: e.opts.DefaultRecipient,
		Capabilities:     capabilities,
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	modelName := w.Config.ModelFor(ac)
	if modelName == "" {
		modelName = e.opts.DefaultModel
	}
	if modelName == "" {
		return nil, &config.ValidationError{Field: "model_name", Message: "no model configured"}
	}
	modelName = model.NormalizeName(modelName)

	llm, err := e.models.Model(ctx, modelName, w.Config.APIKey)
	if err != nil {
		return nil, err
	}

	var kinds []command.Kind
	if toolsEnabled {
		kinds = append(kinds, command.Kinds...)
	}
	if len(scope.Names()) > 0 {
		kinds = append(kinds, command.KindCall)
	}

	var commands agent.CommandRunner
	if len(kinds) > 0 {
		commands = parser.New(scope, func(o *parser.Options) {
			o.Logger = logger
			o.Kinds = kinds
		})
	}

	return agent.New(ac.Name, modelName, instructions, llm, func(o *agent.Options) {
		o.Commands = commands
		o.Tracer = emitter
		o.UserID = w.UserID
		o.WorkflowID = w.ID
		o.Metrics = e.opts.Metrics
		o.Logger = logger
		o.Now = e.opts.Now
		o.NewID = e.opts.NewID
	}), nil
}

// Run builds cfg, runs it on task and closes it.
func (e *Environment) Run(ctx context.Context, cfg *config.WorkflowConfig, userID, task string) (*workflow.Result, error) {
	w, err := e.Build(ctx, cfg, userID)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	return w.Run(ctx, task)
}

// Overview renders the manager briefing: the delegation instructions
// followed by one "name: persona" line per agent.
func Overview(agents []config.AgentConfig) string {
	var b strings.Builder

	b.WriteString("You are a manager agent. Solve the user's task by delegating tasks to the appropriate agents and delegating the tasks to them.\n")
	b.WriteString("Think step by step and do not ask the user for clarification, just execute the task as best as you can.\n")
	b.WriteString("You have access to the following agents:\n")

	for _, a := range agents {
		fmt.Fprintf(&b, "%s: %s\n", a.Name, a.Persona)
	}

	return b.String()
}
