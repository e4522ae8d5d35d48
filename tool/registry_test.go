package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentfactory/command"
)

func withProviders(p Providers) func(o *Options) {
	return func(o *Options) { o.Providers = StaticProviders(p) }
}

func TestRegistry_SimulatedWithoutProviders(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	email := r.Execute(ctx, command.KindEmail, map[string]string{"to": "a@b.com", "subject": "S", "body": "B"})
	assert.Equal(t, StateSimulated, email.State)
	assert.Equal(t, "📧 [SIMULATED] Email sent to a@b.com with subject: S", email.Status)

	event := r.Execute(ctx, command.KindCalendar, map[string]string{"title": "Sync", "date": "2025-01-02", "time": "09:30"})
	assert.Equal(t, "📅 [SIMULATED] Calendar event created: Sync on 2025-01-02 at 09:30", event.Status)

	long := strings.Repeat("x", 150)
	tweet := r.Execute(ctx, command.KindTweet, map[string]string{"text": long})
	assert.Equal(t, "🐦 [SIMULATED] Tweet posted: "+strings.Repeat("x", 100), tweet.Status)

	assert.False(t, r.Ready(ctx))
}

func TestRegistry_SimulatedIsIdempotent(t *testing.T) {
	r := NewRegistry()
	params := map[string]string{"to": "a@b.com", "subject": "S", "body": "B"}

	first := r.Execute(context.Background(), command.KindEmail, params)
	second := r.Execute(context.Background(), command.KindEmail, params)

	assert.Equal(t, first, second)
}

func TestRegistry_EmailSuccess(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, Email{To: "a@b.com", Subject: "S", Body: "B"}).Return(Receipt{ID: "msg-1"}, nil)

	r := NewRegistry(withProviders(Providers{Email: sender}))
	out := r.SendEmail(context.Background(), "a@b.com", "S", "B")

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "✅ Email sent successfully to a@b.com (ID: msg-1)", out.Status)
	assert.Equal(t, "msg-1", out.ProviderID)
	sender.AssertExpectations(t)
}

func TestRegistry_EmailFailure(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, mock.Anything).Return(Receipt{}, errors.New("smtp: 535 auth failed"))

	r := NewRegistry(withProviders(Providers{Email: sender}))
	out := r.SendEmail(context.Background(), "a@b.com", "S", "B")

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "❌ Failed to send email: smtp: 535 auth failed", out.Status)
	assert.Equal(t, "smtp: 535 auth failed", out.Error)
}

func TestRegistry_ProviderUnavailableIsSimulated(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, mock.Anything).Return(Receipt{}, ErrProviderUnavailable)

	r := NewRegistry(withProviders(Providers{Email: sender}))
	out := r.SendEmail(context.Background(), "a@b.com", "S", "B")

	assert.Equal(t, StateSimulated, out.State)
}

func TestRegistry_CalendarSuccess(t *testing.T) {
	cal := new(MockCalendar)
	cal.On("CreateEvent", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Title == "Launch" &&
			ev.Start.Format("2006-01-02 15:04") == "2025-03-01 14:30" &&
			ev.End.Sub(ev.Start) == time.Hour &&
			ev.TimeZone == "America/New_York"
	})).Return(Receipt{ID: "ev1", Link: "https://calendar.example/ev1"}, nil)

	r := NewRegistry(withProviders(Providers{Calendar: cal}))
	out := r.CreateEvent(context.Background(), "Launch", "2025-03-01", "14:30")

	assert.Equal(t, "✅ Event created: Launch on 2025-03-01 at 14:30 - https://calendar.example/ev1", out.Status)
	cal.AssertExpectations(t)
}

func TestRegistry_CalendarBadDate(t *testing.T) {
	cal := new(MockCalendar)

	r := NewRegistry(withProviders(Providers{Calendar: cal}))
	out := r.CreateEvent(context.Background(), "Launch", "next friday", "14:30")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, strings.HasPrefix(out.Status, "❌ Failed to create event: parse event start"))
	cal.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestRegistry_CalendarDefaultTime(t *testing.T) {
	out := NewRegistry().CreateEvent(context.Background(), "Standup", "2025-03-01", "")
	assert.Equal(t, "📅 [SIMULATED] Calendar event created: Standup on 2025-03-01 at 10:00", out.Status)
}

func TestRegistry_TweetTruncatedBeforePosting(t *testing.T) {
	long := strings.Repeat("a", 300)
	want := strings.Repeat("a", 277) + "..."

	poster := new(MockPoster)
	poster.On("Post", mock.Anything, want).Return(Receipt{ID: "42"}, nil)

	r := NewRegistry(withProviders(Providers{Social: poster}))
	out := r.PostTweet(context.Background(), long)

	assert.Equal(t, "✅ Tweet posted: https://twitter.com/user/status/42", out.Status)
	assert.Equal(t, "https://twitter.com/user/status/42", out.Link)
	poster.AssertExpectations(t)
}

func TestRegistry_TweetAccessTier(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"status text", errors.New("403 Forbidden")},
		{"access level text", errors.New("You currently have Essential ACCESS LEVEL")},
		{"status coder", statusErr{code: 403}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := new(MockPoster)
			poster.On("Post", mock.Anything, "hello").Return(Receipt{}, tt.err)

			out := NewRegistry(withProviders(Providers{Social: poster})).PostTweet(context.Background(), "hello")

			assert.Equal(t, StateSimulated, out.State)
			assert.Equal(t, "🐦 [SIMULATED - Free Tier] Tweet: hello", out.Status)
		})
	}
}

func TestRegistry_TweetOtherFailure(t *testing.T) {
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, "hello").Return(Receipt{}, statusErr{code: 500})

	out := NewRegistry(withProviders(Providers{Social: poster})).PostTweet(context.Background(), "hello")

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "❌ Failed to post tweet: request rejected", out.Status)
}

func TestRegistry_BreakerOpensToSimulation(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, mock.Anything).Return(Receipt{}, errors.New("down"))

	r := NewRegistry(withProviders(Providers{Email: sender}), func(o *Options) {
		o.Breaker = BreakerOptions{ConsecutiveFailures: 2, OpenTimeout: time.Minute}
	})

	ctx := context.Background()
	assert.Equal(t, StateFailed, r.SendEmail(ctx, "a", "s", "b").State)
	assert.Equal(t, StateFailed, r.SendEmail(ctx, "a", "s", "b").State)
	assert.Equal(t, StateSimulated, r.SendEmail(ctx, "a", "s", "b").State)

	sender.AssertNumberOfCalls(t, "SendEmail", 2)
}

func TestRegistry_InitOnce(t *testing.T) {
	var calls atomic.Int32

	r := NewRegistry(func(o *Options) {
		o.Providers = func(context.Context) (Providers, error) {
			calls.Add(1)
			return Providers{}, errors.New("no credentials")
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.PostTweet(context.Background(), "hi")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestRegistry_PartialProvidersAfterInitError(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, mock.Anything).Return(Receipt{ID: "1"}, nil)

	r := NewRegistry(func(o *Options) {
		o.Providers = func(context.Context) (Providers, error) {
			return Providers{Email: sender}, errors.New("calendar token missing")
		}
	})

	assert.Equal(t, StateSuccess, r.SendEmail(context.Background(), "a", "s", "b").State)
	assert.Equal(t, StateSimulated, r.CreateEvent(context.Background(), "t", "2025-01-01", "10:00").State)
}

func TestRegistry_ExecuteByName(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	out := r.ExecuteByName(ctx, "post_tweet", map[string]any{"text": "hi"})
	assert.Equal(t, "🐦 [SIMULATED] Tweet posted: hi", out.Status)

	out = r.ExecuteByName(ctx, "create_calendar_event", map[string]any{"title": "T", "date": "2025-01-01"})
	assert.Equal(t, StateSimulated, out.State)

	out = r.ExecuteByName(ctx, "send_email", map[string]any{"to": "a@b.com"})
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "❌ Tool execution failed: validation error for field 'subject': required field is missing", out.Status)

	out = r.ExecuteByName(ctx, "launch_rocket", nil)
	assert.Equal(t, "❌ Unknown tool: launch_rocket", out.Status)
}

func TestRegistry_Catalog(t *testing.T) {
	names := []string{}
	for _, d := range NewRegistry().Catalog() {
		assert.True(t, d.Builtin)
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"send_email", "create_calendar_event", "post_tweet"}, names)
}

func TestRegistry_Observer(t *testing.T) {
	var seen []Outcome

	r := NewRegistry(func(o *Options) {
		o.Observer = func(out Outcome, _ time.Duration) { seen = append(seen, out) }
	})
	r.PostTweet(context.Background(), "hi")

	require.Len(t, seen, 1)
	assert.Equal(t, "post_tweet", seen[0].Tool)
}
