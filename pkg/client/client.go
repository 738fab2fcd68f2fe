// Package client implements the request composer: it shapes form state
// into an invocation payload and issues a single authenticated HTTP call
// to the gateway, normalizing the outcome into an api.Envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
)

// NoSessionMessage is returned when a submission is attempted without an
// active session. No network call is made in that case.
const NoSessionMessage = "No active session. Please log in again."

// Config holds composer settings.
type Config struct {
	// Endpoint is the gateway base URL; /invoke_model is appended.
	Endpoint string

	// Timeout bounds the invocation call. Default: 120s (inference
	// responses are slow; no retry or cancellation beyond this).
	Timeout time.Duration

	// HTTPClient allows injecting a custom client for testing.
	HTTPClient *http.Client
}

// Client composes and submits model invocation requests.
type Client struct {
	endpoint string
	http     *http.Client
	sessions session.Source
	loading  atomic.Bool
}

// New creates a composer bound to a gateway endpoint and a session source.
func New(cfg Config, sessions session.Source) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("client: Endpoint is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("client: session source is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     httpClient,
		sessions: sessions,
	}, nil
}

// Loading reports whether an invocation is in flight. The flag is
// advisory; concurrent submissions are not prevented.
func (c *Client) Loading() bool {
	return c.loading.Load()
}

// InvokeModel submits one invocation request. The result is always an
// envelope: raw response data on success, a human-readable message on
// any failure. The loading flag is set for the duration of the call and
// reset on every exit path.
func (c *Client) InvokeModel(ctx context.Context, req api.ModelRequest) api.Envelope {
	c.loading.Store(true)
	defer c.loading.Store(false)

	sess, err := c.sessions.Current(ctx)
	if err != nil {
		return api.ErrorEnvelope(err.Error())
	}
	if sess == nil || sess.AccessToken == "" {
		return api.ErrorEnvelope(NoSessionMessage)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return api.ErrorEnvelope(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/invoke_model", bytes.NewReader(body))
	if err != nil {
		return api.ErrorEnvelope(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return api.ErrorEnvelope(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.ErrorEnvelope(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if detail := api.ExtractDetail(respBody); detail != "" {
			return api.ErrorEnvelope(detail)
		}
		return api.ErrorEnvelope(fmt.Sprintf("request failed: %s", resp.Status))
	}

	return api.DataEnvelope(respBody)
}
