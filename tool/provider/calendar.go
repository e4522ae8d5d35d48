package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/tool"
)

// CalendarOptions configures GoogleCalendar.
type CalendarOptions struct {
	CalendarID string
	// Endpoint overrides the API base URL, e.g. for tests.
	Endpoint string
	// HTTPClient is the base client under the OAuth transport.
	HTTPClient *http.Client
}

// GoogleCalendar creates events through the Google Calendar v3 API.
type GoogleCalendar struct {
	events *calendar.EventsService
	opts   CalendarOptions
}

// NewGoogleCalendar creates a GoogleCalendar authorized by ts.
func NewGoogleCalendar(ctx context.Context, ts oauth2.TokenSource, optFns ...func(o *CalendarOptions)) (*GoogleCalendar, error) {
	opts := CalendarOptions{
		CalendarID: "primary",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	hctx := context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)

	clientOpts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(hctx, ts))}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &GoogleCalendar{events: svc.Events, opts: opts}, nil
}

// CalendarTokenSource returns the token source for cfg. A refresh token with
// OAuth client credentials yields a refreshing source, a bare access token a
// static one. It returns nil when no credentials are configured.
func CalendarTokenSource(ctx context.Context, cfg config.CalendarConfig) oauth2.TokenSource {
	switch {
	case cfg.RefreshToken != "" && cfg.ClientID != "":
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope},
		}
		return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	case cfg.Token != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	default:
		return nil
	}
}

// CreateEvent implements tool.CalendarCreator.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev tool.Event) (tool.Receipt, error) {
	created, err := g.events.Insert(g.opts.CalendarID, &calendar.Event{
		Summary: ev.Title,
		Start:   &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:     &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return tool.Receipt{}, &HTTPError{Service: "calendar", Status: apiErr.Code, Body: apiErr.Message}
		}
		return tool.Receipt{}, fmt.Errorf("insert event: %w", err)
	}

	return tool.Receipt{ID: created.Id, Link: created.HtmlLink}, nil
}
