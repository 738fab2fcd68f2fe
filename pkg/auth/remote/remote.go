// Package remote provides an authenticator that verifies bearer tokens by
// asking the auth provider directly: a GET of the provider's user endpoint
// with the caller's token. Slower than local JWT validation but requires
// no key configuration, and revoked tokens are rejected immediately.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/auth"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
)

// Config holds the remote authenticator configuration.
type Config struct {
	// BaseURL is the auth provider root (same value the session client uses).
	BaseURL string

	// AnonKey is the provider's public API key. Optional.
	AnonKey string

	// Timeout bounds the verification call. Default: 10s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom client for testing.
	HTTPClient *http.Client
}

// Authenticator verifies tokens against the provider's user endpoint.
type Authenticator struct {
	provider *session.Client
}

// New creates a remote authenticator for the given provider.
func New(cfg Config) (*Authenticator, error) {
	provider, err := session.NewClient(session.Config{
		BaseURL:    cfg.BaseURL,
		AnonKey:    cfg.AnonKey,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	return &Authenticator{provider: provider}, nil
}

// Authenticate resolves the bearer token to a user via the provider.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: token present but the provider rejected it
//   - Yes: provider returned a user for the token
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	token := auth.BearerToken(r)
	if token == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	user, err := a.provider.UserInfo(ctx, token)
	if err != nil {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("token verification failed: %w", err),
		}
	}
	if user == nil || user.ID == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("provider returned no user for token"),
		}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject: user.ID,
			Email:   user.Email,
		},
	}
}
