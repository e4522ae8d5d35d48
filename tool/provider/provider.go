// Package provider contains the real tool backends: SMTP email, the Google
// Calendar v3 API and the X API v2.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/tool"
)

// HTTPError is a non-2xx API response.
type HTTPError struct {
	Service string
	Status  int
	Body    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}

// StatusCode implements tool.StatusCoder.
func (e *HTTPError) StatusCode() int { return e.Status }

func checkResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	return &HTTPError{Service: service, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// FromConfig returns a tool.ProviderFactory building every provider whose
// credentials are configured.
func FromConfig(cfg config.ProvidersConfig, logger logging.Logger) tool.ProviderFactory {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return func(ctx context.Context) (tool.Providers, error) {
		var (
			p   tool.Providers
			err error
		)

		// providers outlive the call that triggered initialization
		ctx = context.WithoutCancel(ctx)

		if cfg.SMTP.Host != "" && cfg.SMTP.From != "" {
			p.Email = NewSMTPEmail(func(o *SMTPOptions) {
				o.Host = cfg.SMTP.Host
				o.Port = cfg.SMTP.Port
				o.Username = cfg.SMTP.Username
				o.Password = cfg.SMTP.Password
				o.From = cfg.SMTP.From
			})
			logger.Info("email provider configured", "host", cfg.SMTP.Host)
		}

		if ts := CalendarTokenSource(ctx, cfg.Calendar); ts != nil {
			cal, calErr := NewGoogleCalendar(ctx, ts, func(o *CalendarOptions) {
				if cfg.Calendar.CalendarID != "" {
					o.CalendarID = cfg.Calendar.CalendarID
				}
				o.Endpoint = cfg.Calendar.BaseURL
			})
			if calErr != nil {
				err = calErr
			} else {
				p.Calendar = cal
				logger.Info("calendar provider configured", "calendar_id", cfg.Calendar.CalendarID)
			}
		}

		if cfg.X.BearerToken != "" {
			p.Social = NewXPoster(cfg.X.BearerToken, func(o *XOptions) {
				if cfg.X.BaseURL != "" {
					o.BaseURL = cfg.X.BaseURL
				}
			})
			logger.Info("social provider configured")
		}

		return p, err
	}
}
