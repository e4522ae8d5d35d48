package tool

import (
	"context"
	"errors"
	"time"
)

// Receipt identifies the artifact a provider created.
type Receipt struct {
	ID   string
	Link string
}

// Email is a message handed to an EmailSender.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Event is a calendar entry handed to a CalendarCreator.
type Event struct {
	Title    string
	Start    time.Time
	End      time.Time
	TimeZone string
}

// EmailSender delivers email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) (Receipt, error)
}

// CalendarCreator creates calendar events.
type CalendarCreator interface {
	CreateEvent(ctx context.Context, ev Event) (Receipt, error)
}

// Poster publishes a short social post.
type Poster interface {
	Post(ctx context.Context, text string) (Receipt, error)
}

// Providers bundles the provider handles. A nil handle means the kind is
// served by simulation.
type Providers struct {
	Email    EmailSender
	Calendar CalendarCreator
	Social   Poster
}

// Any reports whether at least one provider is configured.
func (p Providers) Any() bool {
	return p.Email != nil || p.Calendar != nil || p.Social != nil
}

// ProviderFactory initializes provider handles. It runs at most once per
// Registry. Handles that were built before an error are still used.
type ProviderFactory func(ctx context.Context) (Providers, error)

// StaticProviders returns a ProviderFactory yielding p.
func StaticProviders(p Providers) ProviderFactory {
	return func(context.Context) (Providers, error) { return p, nil }
}

// StatusCoder is implemented by provider errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

func statusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
