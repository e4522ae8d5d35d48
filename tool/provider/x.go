package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/agentfactory/tool"
)

// XOptions configures XPoster.
type XOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// XPoster publishes posts through the X API v2.
type XPoster struct {
	token string
	opts  XOptions
}

// NewXPoster creates an XPoster authenticated with a user bearer token.
func NewXPoster(token string, optFns ...func(o *XOptions)) *XPoster {
	opts := XOptions{
		BaseURL:    "https://api.twitter.com/2",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &XPoster{token: token, opts: opts}
}

type postResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post implements tool.Poster. A 403 response surfaces as *HTTPError so the
// registry can recognize access tier restrictions.
func (x *XPoster) Post(ctx context.Context, text string) (tool.Receipt, error) {
	if x.token == "" {
		return tool.Receipt{}, tool.ErrProviderUnavailable
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return tool.Receipt{}, fmt.Errorf("encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.opts.BaseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return tool.Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+x.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.opts.HTTPClient.Do(req)
	if err != nil {
		return tool.Receipt{}, fmt.Errorf("x request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse("x", resp); err != nil {
		return tool.Receipt{}, err
	}

	var out postResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return tool.Receipt{}, fmt.Errorf("decode post: %w", err)
	}

	return tool.Receipt{ID: out.Data.ID}, nil
}
