// Package session talks to the external auth provider. It implements the
// session collaborator the request composer depends on: current session
// lookup, sign-in, sign-out, and a loading flag around provider calls.
//
// The provider API is GoTrue-compatible:
//
//	POST /auth/v1/token?grant_type=password  {email, password}
//	GET  /auth/v1/user                       (bearer)
//	POST /auth/v1/logout                     (bearer)
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// User identifies the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the bearer credential and its owner.
type Session struct {
	AccessToken string
	User        User
	ExpiresAt   time.Time
}

// Source supplies the current session, or nil when no session exists.
// The composer consults a Source before every network call.
type Source interface {
	Current(ctx context.Context) (*Session, error)
}

// Static returns a fixed Source. Used for per-request (cookie-backed)
// sessions where the token is already at hand.
func Static(token string, user User) Source {
	if token == "" {
		return staticSource{}
	}
	return staticSource{session: &Session{AccessToken: token, User: user}}
}

type staticSource struct {
	session *Session
}

func (s staticSource) Current(context.Context) (*Session, error) {
	return s.session, nil
}

// Config holds the auth provider connection settings.
type Config struct {
	// BaseURL is the provider root; the /auth/v1 paths are appended.
	BaseURL string

	// AnonKey is the provider's public API key, sent as the "apikey"
	// header on every call. Optional.
	AnonKey string

	// Timeout bounds each provider call. Default: 10s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom client for testing.
	HTTPClient *http.Client
}

// Client is a session provider backed by the external auth service.
// It caches the session from the last successful sign-in.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client

	loading atomic.Bool

	mu      sync.RWMutex
	current *Session
}

// Ensure Client implements Source at compile time.
var _ Source = (*Client)(nil)

// NewClient creates a session client for the given provider.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("session: BaseURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		anonKey: cfg.AnonKey,
		http:    httpClient,
	}, nil
}

// Loading reports whether a provider call is in flight.
func (c *Client) Loading() bool {
	return c.loading.Load()
}

// Current returns the cached session, or nil when not signed in.
func (c *Client) Current(context.Context) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current != nil && !c.current.ExpiresAt.IsZero() && time.Now().After(c.current.ExpiresAt) {
		return nil, nil
	}
	return c.current, nil
}

// tokenResponse is the provider's password-grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

// SignIn exchanges credentials for a session and caches it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	c.loading.Store(true)
	defer c.loading.Store(false)

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("session: marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("session: create request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: sign in: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("session: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: sign in failed (%d): %s", resp.StatusCode, providerError(respBody))
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return nil, fmt.Errorf("session: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("session: provider returned no access token")
	}

	sess := &Session{
		AccessToken: tok.AccessToken,
		User:        tok.User,
	}
	if tok.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	return sess, nil
}

// UserInfo fetches the user for a bearer token from the provider.
func (c *Client) UserInfo(ctx context.Context, token string) (*User, error) {
	c.loading.Store(true)
	defer c.loading.Store(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("session: create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: fetch user: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("session: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: fetch user failed (%d): %s", resp.StatusCode, providerError(respBody))
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	return &user, nil
}

// SignOut revokes the cached session with the provider and drops it
// locally. The local session is cleared even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	c.loading.Store(true)
	defer c.loading.Store(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("session: create request: %w", err)
	}
	c.setHeaders(req, sess.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session: sign out: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session: sign out failed (%d)", resp.StatusCode)
	}
	return nil
}

// Revoke signs out the given token with the provider. Unlike SignOut it
// does not touch the cached session; it serves per-request (cookie) tokens.
func (c *Client) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	c.loading.Store(true)
	defer c.loading.Store(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("session: create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session: revoke failed (%d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// providerError extracts a readable message from a provider error body.
func providerError(body []byte) string {
	var e struct {
		Message          string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.Message != "":
			return e.Message
		case e.ErrorDescription != "":
			return e.ErrorDescription
		case e.Error != "":
			return e.Error
		}
	}
	return string(body)
}
