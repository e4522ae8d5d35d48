package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/tool"
)

func TestSMTPEmail_SendEmail(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)

	s := NewSMTPEmail(func(o *SMTPOptions) {
		o.Host = "smtp.example.com"
		o.Port = 2525
		o.Username = "bot"
		o.Password = "pw"
		o.From = "bot@example.com"
		o.SendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			return nil
		}
	})

	rec, err := s.SendEmail(context.Background(), tool.Email{To: "a@b.com, c@d.com", Subject: "Hi\nthere", Body: "line1\nline2"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hi there\r\n")
	assert.Contains(t, gotMsg, "Message-ID: <"+rec.ID+"@example.com>")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline1\r\nline2"))
}

func TestSMTPEmail_Errors(t *testing.T) {
	_, err := NewSMTPEmail().SendEmail(context.Background(), tool.Email{To: "a@b.com"})
	assert.ErrorIs(t, err, tool.ErrProviderUnavailable)

	s := NewSMTPEmail(func(o *SMTPOptions) {
		o.Host, o.From = "h", "f@x"
		o.SendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 rejected") }
	})

	_, err = s.SendEmail(context.Background(), tool.Email{To: " , "})
	assert.Error(t, err)

	_, err = s.SendEmail(context.Background(), tool.Email{To: "a@b.com"})
	assert.ErrorContains(t, err, "550 rejected")
}

func newTestCalendar(t *testing.T, srv *httptest.Server) *GoogleCalendar {
	t.Helper()

	ts := CalendarTokenSource(context.Background(), config.CalendarConfig{Token: "cal-token"})
	require.NotNil(t, ts)

	g, err := NewGoogleCalendar(context.Background(), ts, func(o *CalendarOptions) {
		o.Endpoint = srv.URL + "/calendar/v3/"
		o.CalendarID = "team@example.com"
		o.HTTPClient = srv.Client()
	})
	require.NoError(t, err)

	return g
}

func TestGoogleCalendar_CreateEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendar/v3/calendars/team@example.com/events", r.URL.Path)
		assert.Equal(t, "Bearer cal-token", r.Header.Get("Authorization"))

		var body calendar.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Standup", body.Summary)
		assert.Equal(t, "America/New_York", body.Start.TimeZone)
		assert.Equal(t, "2025-10-05T14:00:00-04:00", body.Start.DateTime)
		assert.Equal(t, "2025-10-05T15:00:00-04:00", body.End.DateTime)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.example/evt-1"}`))
	}))
	defer srv.Close()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2025, 10, 5, 14, 0, 0, 0, loc)

	rec, err := newTestCalendar(t, srv).CreateEvent(context.Background(), tool.Event{
		Title: "Standup", Start: start, End: start.Add(time.Hour), TimeZone: "America/New_York",
	})
	require.NoError(t, err)
	assert.Equal(t, tool.Receipt{ID: "evt-1", Link: "https://calendar.example/evt-1"}, rec)
}

func TestGoogleCalendar_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	start := time.Date(2025, 10, 5, 14, 0, 0, 0, time.UTC)

	_, err := newTestCalendar(t, srv).CreateEvent(context.Background(), tool.Event{Title: "x", Start: start, End: start})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode())
	assert.Equal(t, "Invalid Credentials", httpErr.Body)
}

func TestCalendarTokenSource(t *testing.T) {
	assert.Nil(t, CalendarTokenSource(context.Background(), config.CalendarConfig{}))

	tok, err := CalendarTokenSource(context.Background(), config.CalendarConfig{Token: "static"}).Token()
	require.NoError(t, err)
	assert.Equal(t, "static", tok.AccessToken)

	assert.NotNil(t, CalendarTokenSource(context.Background(), config.CalendarConfig{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh",
	}))
}

func TestXPoster_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"1790","text":"hello"}}`))
	}))
	defer srv.Close()

	x := NewXPoster("x-token", func(o *XOptions) { o.BaseURL = srv.URL })

	rec, err := x.Post(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "1790", rec.ID)
}

func TestXPoster_ForbiddenIsFreeTierInRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"title":"Forbidden","detail":"You currently have access to a subset of endpoints"}`))
	}))
	defer srv.Close()

	x := NewXPoster("x-token", func(o *XOptions) { o.BaseURL = srv.URL })

	_, err := x.Post(context.Background(), "hello")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode())

	reg := tool.NewRegistry(func(o *tool.Options) {
		o.Providers = tool.StaticProviders(tool.Providers{Social: x})
	})

	out := reg.PostTweet(context.Background(), "hello")
	assert.Equal(t, tool.StateSimulated, out.State)
	assert.Contains(t, out.Status, "Free Tier")
}

func TestFromConfig(t *testing.T) {
	cfg := config.Defaults().Providers

	p, err := FromConfig(cfg, nil)(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Any())

	cfg.SMTP.Host, cfg.SMTP.From = "smtp.example.com", "bot@example.com"
	cfg.X.BearerToken = "x"

	p, err = FromConfig(cfg, nil)(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p.Email)
	assert.Nil(t, p.Calendar)
	assert.NotNil(t, p.Social)

	cfg.Calendar.Token = "cal-token"

	p, err = FromConfig(cfg, nil)(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p.Calendar)
}
