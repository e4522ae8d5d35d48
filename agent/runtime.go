package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentfactory/internal/metrics"
	"github.com/hupe1980/agentfactory/internal/telemetry"
	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/model"
	"github.com/hupe1980/agentfactory/tool"
	"github.com/hupe1980/agentfactory/trace"
)

const (
	// DefaultHistoryLimit is the number of turns kept between calls.
	DefaultHistoryLimit = 10
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second
	// DefaultTemperature is the sampling temperature of every agent.
	DefaultTemperature = 0.7
)

// CommandRunner executes tool commands embedded in a reply and returns the
// rewritten text with the outcomes.
type CommandRunner interface {
	ParseAndExecute(ctx context.Context, text string) (string, []tool.Outcome)
}

// Identity is the immutable description of an agent.
type Identity struct {
	Name         string
	Model        string
	Temperature  float64
	Instructions string
}

// Options configures a Runtime.
type Options struct {
	Temperature  float64
	Timeout      time.Duration
	HistoryLimit int
	// Commands parses tool commands out of replies. Nil disables parsing.
	Commands CommandRunner
	Tracer   *trace.Emitter
	// UserID and WorkflowID are copied into every trace record.
	UserID     string
	WorkflowID string
	Metrics    *metrics.Collector
	Logger     logging.Logger
	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// Runtime runs conversational turns for one agent. Turns on the same
// Runtime are serialized.
type Runtime struct {
	identity Identity
	llm      model.Model
	opts     Options
	logger   *logging.ContextLogger

	turn    sync.Mutex
	history []model.Message
	state   atomic.Int32
}

// New creates a Runtime for the agent name backed by llm. modelName is the
// identifier sent with every request; instructions are the composed system
// prompt.
func New(name, modelName, instructions string, llm model.Model, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Temperature:  DefaultTemperature,
		Timeout:      DefaultTimeout,
		HistoryLimit: DefaultHistoryLimit,
		Logger:       logging.NoOpLogger{},
		Now:          time.Now,
		NewID:        util.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runtime{
		identity: Identity{
			Name:         name,
			Model:        modelName,
			Temperature:  opts.Temperature,
			Instructions: instructions,
		},
		llm:    llm,
		opts:   opts,
		logger: logging.With(opts.Logger, "component", "agent", "agent", name),
	}
}

// Name returns the agent name.
func (r *Runtime) Name() string { return r.identity.Name }

// Identity returns the agent identity.
func (r *Runtime) Identity() Identity { return r.identity }

// ToolsEnabled reports whether replies are scanned for tool commands.
func (r *Runtime) ToolsEnabled() bool { return r.opts.Commands != nil }

// State returns the current lifecycle state.
func (r *Runtime) State() State { return State(r.state.Load()) }

// History returns a copy of the conversation history.
func (r *Runtime) History() []model.Message {
	r.turn.Lock()
	defer r.turn.Unlock()

	return append([]model.Message(nil), r.history...)
}

// Run executes one turn and returns the assistant text. A failed completion
// call is returned as *TurnError and leaves the history unchanged.
func (r *Runtime) Run(ctx context.Context, userMessage string) (string, error) {
	r.turn.Lock()
	defer r.turn.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "agent.run",
		attribute.String("agent.name", r.identity.Name),
		attribute.String("agent.model", r.identity.Model),
	)

	start := r.opts.Now()
	running := trace.Record{
		TraceID:    r.opts.NewID(),
		AgentName:  r.identity.Name,
		Model:      r.identity.Model,
		WorkflowID: r.opts.WorkflowID,
		UserID:     r.opts.UserID,
		Status:     trace.StatusRunning,
		StartTime:  start,
		Input:      userMessage,
	}
	spanID := r.opts.NewID()

	r.logger.Debug("processing message", "trace_id", running.TraceID, "input", util.Truncate(userMessage, 100))
	r.opts.Tracer.Emit(ctx, running, running.AsSpan(spanID))

	text, err := r.turnLocked(ctx, userMessage)

	end := r.opts.Now()
	status, output := trace.StatusCompleted, text
	if err != nil {
		status, output = trace.StatusFailed, err.Error()
	}

	done := running.Finish(status, output, end)
	r.opts.Tracer.Emit(ctx, done, done.AsSpan(spanID))
	r.opts.Metrics.RecordAgentTurn(r.identity.Name, string(status), end.Sub(start))
	telemetry.End(span, err)

	if err != nil {
		r.logger.Error("agent turn failed", "trace_id", running.TraceID, "error", err.Error())
		return "", &TurnError{Agent: r.identity.Name, Err: err}
	}

	r.logger.Info("agent turn completed", "trace_id", running.TraceID, "duration_ms", done.DurationMS)

	return text, nil
}

func (r *Runtime) turnLocked(ctx context.Context, userMessage string) (string, error) {
	defer r.state.Store(int32(StateIdle))

	messages := make([]model.Message, 0, len(r.history)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: r.identity.Instructions})
	messages = append(messages, r.history...)
	messages = append(messages, model.Message{Role: model.RoleUser, Content: userMessage})

	r.state.Store(int32(StateAwaitingCompletion))

	text, err := r.complete(ctx, messages)
	if err != nil {
		return "", err
	}

	if r.opts.Commands != nil {
		r.state.Store(int32(StateExecutingTools))

		rewritten, outcomes := r.opts.Commands.ParseAndExecute(ctx, text)
		if len(outcomes) > 0 {
			r.logger.Info("executed tool commands", "count", len(outcomes))
			text = rewritten
		}
	}

	r.history = append(r.history,
		model.Message{Role: model.RoleUser, Content: userMessage},
		model.Message{Role: model.RoleAssistant, Content: text},
	)
	if over := len(r.history) - r.opts.HistoryLimit; over > 0 {
		r.history = append([]model.Message(nil), r.history[over:]...)
	}

	return text, nil
}

func (r *Runtime) complete(ctx context.Context, messages []model.Message) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.llm.Complete(cctx, model.Request{
		Model:       r.identity.Model,
		Messages:    messages,
		Temperature: r.identity.Temperature,
	})
	dur := time.Since(start)

	r.logger.LogLLMCall(r.identity.Model, dur, err)

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		r.opts.Metrics.RecordLLMRequest(r.identity.Model, status, dur, 0, 0)
		return "", err
	}

	var promptTokens, completionTokens int
	if resp.Usage != nil {
		promptTokens, completionTokens = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	r.opts.Metrics.RecordLLMRequest(r.identity.Model, status, dur, promptTokens, completionTokens)

	return resp.Content, nil
}
