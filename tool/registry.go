package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hupe1980/agentfactory/command"
	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/logging"
)

const (
	toolEmail    = "send_email"
	toolCalendar = "create_calendar_event"
	toolTweet    = "post_tweet"

	tweetURL      = "https://twitter.com/user/status/"
	tweetMaxRunes = 280
	eventLayout   = "2006-01-02 15:04"
)

// EmailArgs are the parameters of send_email.
type EmailArgs struct {
	To      string `json:"to" description:"Recipient address"`
	Subject string `json:"subject" description:"Subject line"`
	Body    string `json:"body" description:"Message body"`
}

// EventArgs are the parameters of create_calendar_event.
type EventArgs struct {
	Title string `json:"title" description:"Event title"`
	Date  string `json:"date" description:"Date as YYYY-MM-DD"`
	Time  string `json:"time,omitempty" description:"Start time as HH:MM"`
}

// TweetArgs are the parameters of post_tweet.
type TweetArgs struct {
	Text string `json:"text" description:"Post text"`
}

var builtins = map[command.Kind]Descriptor{
	command.KindEmail: {
		Name:        toolEmail,
		Description: "Send an email",
		Parameters:  util.CreateSchema(EmailArgs{}),
		Builtin:     true,
	},
	command.KindCalendar: {
		Name:        toolCalendar,
		Description: "Create a calendar event",
		Parameters:  util.CreateSchema(EventArgs{}),
		Builtin:     true,
	},
	command.KindTweet: {
		Name:        toolTweet,
		Description: "Post to X (Twitter)",
		Parameters:  util.CreateSchema(TweetArgs{}),
		Builtin:     true,
	},
}

// Options configures a Registry.
type Options struct {
	Logger logging.Logger

	// Providers builds provider handles on first use. Nil means every
	// built-in tool is simulated.
	Providers ProviderFactory

	// TimeZone is the IANA zone used for calendar events.
	TimeZone string
	// DefaultEventTime is used when a calendar call omits the time.
	DefaultEventTime string
	// EventDuration is the length of created events.
	EventDuration time.Duration

	Breaker BreakerOptions

	// Observer, if set, is notified after every execution.
	Observer func(o Outcome, d time.Duration)
}

// Registry executes tool commands. It is safe for concurrent use; provider
// initialization happens exactly once on first use.
type Registry struct {
	opts   Options
	logger *logging.ContextLogger

	once      sync.Once
	providers Providers
	breakers  map[string]*gobreaker.CircuitBreaker[Receipt]
}

// NewRegistry creates a Registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		TimeZone:         "America/New_York",
		DefaultEventTime: "10:00",
		EventDuration:    time.Hour,
		Breaker: BreakerOptions{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.With(opts.Logger, "component", "tool_registry")

	return &Registry{
		opts:   opts,
		logger: logger,
		breakers: map[string]*gobreaker.CircuitBreaker[Receipt]{
			toolEmail:    newBreaker(toolEmail, opts.Breaker, logger),
			toolCalendar: newBreaker(toolCalendar, opts.Breaker, logger),
			toolTweet:    newBreaker(toolTweet, opts.Breaker, logger),
		},
	}
}

// Init initializes providers if that has not happened yet. Calling it is
// optional; every execution path initializes lazily.
func (r *Registry) Init(ctx context.Context) {
	r.once.Do(func() {
		if r.opts.Providers == nil {
			r.logger.Info("no tool providers configured, tools will return simulated responses")
			return
		}

		p, err := r.opts.Providers(ctx)
		if err != nil {
			r.logger.Warn("tool provider initialization failed", "error", err.Error())
		}

		r.providers = p

		r.logger.Info("tool registry initialized",
			"email", p.Email != nil,
			"calendar", p.Calendar != nil,
			"social", p.Social != nil,
		)
	})
}

// Ready reports whether any real provider is available. It triggers lazy init.
func (r *Registry) Ready(ctx context.Context) bool {
	r.Init(ctx)
	return r.providers.Any()
}

// Catalog lists the built-in tools in priority order.
func (r *Registry) Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(builtins))
	for _, k := range command.Kinds {
		out = append(out, builtins[k])
	}
	return out
}

// Execute runs a built-in tool command. It never returns an error: provider
// failures become failed outcomes and missing providers simulated ones.
func (r *Registry) Execute(ctx context.Context, kind command.Kind, params map[string]string) Outcome {
	switch kind {
	case command.KindEmail:
		return r.SendEmail(ctx, params["to"], params["subject"], params["body"])
	case command.KindCalendar:
		return r.CreateEvent(ctx, params["title"], params["date"], params["time"])
	case command.KindTweet:
		return r.PostTweet(ctx, params["text"])
	case command.KindCall:
		return callCommand(ctx, params, r.ExecuteByName)
	default:
		return unknownTool(kind.String())
	}
}

// ExecuteByName dispatches a built-in tool by name with loosely typed
// parameters, as received from HTTP or CLI callers. Named tools are served
// by a Scope.
func (r *Registry) ExecuteByName(ctx context.Context, name string, params map[string]any) Outcome {
	if params == nil {
		params = map[string]any{}
	}

	if kind, ok := command.KindForTool(name); ok {
		if err := util.ValidateParameters(params, builtins[kind].Parameters); err != nil {
			return r.dispatchFailed(name, err)
		}
		return r.Execute(ctx, kind, util.StringParams(params))
	}

	r.logger.Warn("unknown tool requested", "tool_name", name)

	return unknownTool(name)
}

// call runs a named tool and converts its result into an outcome.
func (r *Registry) call(ctx context.Context, t Tool, params map[string]any) Outcome {
	name := t.Name()
	start := time.Now()

	result, err := t.Call(ctx, params)
	if err != nil {
		out := r.dispatchFailed(name, err)
		r.observe(out, time.Since(start), err)
		return out
	}

	out := Outcome{Tool: name, State: StateSuccess, Status: result}
	r.observe(out, time.Since(start), nil)

	return out
}

// callCommand decodes a CALL_TOOL command and dispatches it through byName.
func callCommand(ctx context.Context, params map[string]string, byName func(context.Context, string, map[string]any) Outcome) Outcome {
	name := params["name"]

	var args map[string]any
	if raw := strings.TrimSpace(params["args"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return failed(name, "Tool execution failed: %v", fmt.Errorf("invalid args: %w", err))
		}
	}

	return byName(ctx, name, args)
}

func (r *Registry) dispatchFailed(name string, err error) Outcome {
	out := failed(name, "Tool execution failed: %v", err)
	r.logger.Error("tool execution failed", "tool_name", name, "error", err.Error())
	return out
}

// SendEmail sends an email or simulates it.
func (r *Registry) SendEmail(ctx context.Context, to, subject, body string) Outcome {
	r.Init(ctx)

	start := time.Now()

	if r.providers.Email == nil {
		out := emailSimulated(to, subject)
		r.observe(out, time.Since(start), nil)
		return out
	}

	rec, err := guarded(r.breakers[toolEmail], func() (Receipt, error) {
		return r.providers.Email.SendEmail(ctx, Email{To: to, Subject: subject, Body: body})
	})

	var out Outcome

	switch {
	case err == nil:
		out = emailSent(to, rec.ID)
	case unavailable(err):
		out = emailSimulated(to, subject)
	default:
		out = failed(toolEmail, "Failed to send email: %v", err)
	}

	r.observe(out, time.Since(start), err)

	return out
}

// CreateEvent creates a calendar event or simulates it. An empty tm uses the
// configured default event time.
func (r *Registry) CreateEvent(ctx context.Context, title, date, tm string) Outcome {
	r.Init(ctx)

	if tm == "" {
		tm = r.opts.DefaultEventTime
	}

	start := time.Now()

	if r.providers.Calendar == nil {
		out := eventSimulated(title, date, tm)
		r.observe(out, time.Since(start), nil)
		return out
	}

	rec, err := guarded(r.breakers[toolCalendar], func() (Receipt, error) {
		ev, err := r.buildEvent(title, date, tm)
		if err != nil {
			return Receipt{}, err
		}
		return r.providers.Calendar.CreateEvent(ctx, ev)
	})

	var out Outcome

	switch {
	case err == nil:
		out = eventCreated(title, date, tm, rec)
	case unavailable(err):
		out = eventSimulated(title, date, tm)
	default:
		out = failed(toolCalendar, "Failed to create event: %v", err)
	}

	r.observe(out, time.Since(start), err)

	return out
}

func (r *Registry) buildEvent(title, date, tm string) (Event, error) {
	loc, err := time.LoadLocation(r.opts.TimeZone)
	if err != nil {
		return Event{}, fmt.Errorf("load time zone %q: %w", r.opts.TimeZone, err)
	}

	begin, err := time.ParseInLocation(eventLayout, date+" "+tm, loc)
	if err != nil {
		return Event{}, fmt.Errorf("parse event start: %w", err)
	}

	return Event{
		Title:    title,
		Start:    begin,
		End:      begin.Add(r.opts.EventDuration),
		TimeZone: r.opts.TimeZone,
	}, nil
}

// PostTweet posts text or simulates it. Text longer than 280 characters is
// shortened before posting.
func (r *Registry) PostTweet(ctx context.Context, text string) Outcome {
	r.Init(ctx)

	start := time.Now()

	if r.providers.Social == nil {
		out := tweetSimulated(text)
		r.observe(out, time.Since(start), nil)
		return out
	}

	if runes := []rune(text); len(runes) > tweetMaxRunes {
		text = string(runes[:tweetMaxRunes-3]) + "..."
	}

	rec, err := guarded(r.breakers[toolTweet], func() (Receipt, error) {
		return r.providers.Social.Post(ctx, text)
	})

	var out Outcome

	switch {
	case err == nil:
		out = tweetPosted(rec.ID)
	case unavailable(err):
		out = tweetSimulated(text)
	case accessRestricted(err):
		r.logger.Warn("post rejected by access tier, using simulation", "error", err.Error())
		out = tweetFreeTier(text, err)
	default:
		out = failed(toolTweet, "Failed to post tweet: %v", err)
	}

	r.observe(out, time.Since(start), err)

	return out
}

// accessRestricted detects the X API free tier rejection.
func accessRestricted(err error) bool {
	if statusCode(err) == 403 {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "403") || strings.Contains(strings.ToLower(msg), "access level")
}

func (r *Registry) observe(out Outcome, d time.Duration, err error) {
	r.logger.LogToolCall(out.Tool, string(out.State), d, err)

	if r.opts.Observer != nil {
		r.opts.Observer(out, d)
	}
}
