// Package upstream provides the client for the inference backend. It
// forwards prompt submissions using the Responses API wire format
// (/v1/responses) and returns the raw response body, which the gateway
// passes through to callers unmodified.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/debug"
	"github.com/tonyxmella66/prompt-tester/pkg/observability"
)

// Config holds configuration for the inference backend client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Probe verifies at construction that the backend serves the
	// Responses API.
	Probe bool

	// HTTPClient allows injecting a custom client for testing.
	HTTPClient *http.Client
}

// Client talks to a Responses API inference backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new upstream client. When cfg.Probe is set, it validates
// that the backend supports the Responses API by probing /v1/responses.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream: BaseURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}

	if cfg.Probe {
		if err := c.probeEndpoint(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Invoke forwards a prompt submission to the backend and returns the raw
// response body. A true WebSearch flag maps to the web_search_preview tool.
func (c *Client) Invoke(ctx context.Context, req api.ModelRequest) (json.RawMessage, error) {
	rr := invokeRequest{
		Model:       req.Model,
		Input:       req.Prompt,
		Temperature: req.Temperature,
		Store:       false,
	}
	if req.WebSearch {
		rr.Tools = []tool{{Type: "web_search_preview"}}
	}

	body, err := json.Marshal(rr)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	slog.Debug("forwarding to inference backend",
		"url", c.baseURL+"/v1/responses", "model", req.Model, "web_search", req.WebSearch)
	debug.Raw("upstream", string(body))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return nil, fmt.Errorf("upstream: HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	observability.UpstreamLatency.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		if msg := errorMessage(respBody); msg != "" {
			return nil, fmt.Errorf("upstream: backend error (%d): %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("upstream: backend returned %d: %s", resp.StatusCode, string(respBody))
	}

	observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "ok").Inc()
	debug.Log("upstream", "backend response",
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration", time.Since(start),
		"body", debug.Truncate(string(respBody), 500))
	return json.RawMessage(respBody), nil
}

// probeEndpoint sends a lightweight request to /v1/responses to verify the
// backend supports the Responses API. Connection errors and plain 404s (path
// not found) indicate the endpoint is unavailable. A JSON-formatted 404 from
// the API (e.g., "model not found") means the endpoint exists but rejected
// our probe, which is acceptable.
func (c *Client) probeEndpoint() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Send a minimal request that will be rejected but proves the endpoint exists.
	probe := []byte(`{"model":"_probe","input":"probe","store":false}`)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(probe))
	if err != nil {
		return fmt.Errorf("upstream: probe request creation failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upstream: backend at %s is not reachable: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		// Distinguish between "path not found" (endpoint missing) and
		// "model not found" (endpoint exists, probe model invalid). API
		// backends return 404 with a JSON error body for the latter.
		if errorMessage(respBody) != "" {
			slog.Info("backend probe successful (endpoint exists)",
				"url", c.baseURL+"/v1/responses",
				"status", resp.StatusCode,
			)
			return nil
		}
		return fmt.Errorf("upstream: backend at %s does not support the Responses API (/v1/responses returned 404)", c.baseURL)
	}

	slog.Info("backend probe successful",
		"url", c.baseURL+"/v1/responses",
		"status", resp.StatusCode,
	)
	return nil
}
