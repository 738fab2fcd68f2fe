package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockAuthn returns a fixed result.
type mockAuthn struct {
	result AuthResult
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) AuthResult {
	return m.result
}

func TestAuthChain_FirstYesWins(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: Abstain}},
			&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "alice"}}},
			&mockAuthn{result: AuthResult{Decision: No, Err: errors.New("should not reach")}},
		},
		DefaultDecision: No,
	}

	result := chain.Authenticate(context.Background(), httptest.NewRequest("POST", "/invoke_model", nil))
	if result.Decision != Yes {
		t.Fatalf("decision = %v, want Yes", result.Decision)
	}
	if result.Identity.Subject != "alice" {
		t.Errorf("subject = %q, want alice", result.Identity.Subject)
	}
}

func TestAuthChain_NoStopsChain(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: No, Err: errors.New("bad token")}},
			&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "alice"}}},
		},
		DefaultDecision: Yes,
	}

	result := chain.Authenticate(context.Background(), httptest.NewRequest("POST", "/invoke_model", nil))
	if result.Decision != No {
		t.Fatalf("decision = %v, want No", result.Decision)
	}
	if result.Err == nil {
		t.Error("expected error on No decision")
	}
}

func TestAuthChain_AllAbstain_DefaultYes(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: Abstain}},
		},
		DefaultDecision: Yes,
	}

	result := chain.Authenticate(context.Background(), httptest.NewRequest("POST", "/invoke_model", nil))
	if result.Decision != Yes {
		t.Fatalf("decision = %v, want Yes (default)", result.Decision)
	}
	if result.Identity.Subject != "anonymous" {
		t.Errorf("subject = %q, want anonymous", result.Identity.Subject)
	}
}

func TestAuthChain_AllAbstain_DefaultNo(t *testing.T) {
	chain := &AuthChain{DefaultDecision: No}

	result := chain.Authenticate(context.Background(), httptest.NewRequest("POST", "/invoke_model", nil))
	if result.Decision != No {
		t.Fatalf("decision = %v, want No (default)", result.Decision)
	}
	if !errors.Is(result.Err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", result.Err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer token", "Bearer abc123", "abc123"},
		{"no header", "", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"bearer no token", "Bearer ", ""},
		{"bare word", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	id := &Identity{Subject: "alice", Email: "alice@example.com"}
	ctx := SetIdentity(context.Background(), id)

	got := IdentityFromContext(ctx)
	if got == nil || got.Subject != "alice" || got.Email != "alice@example.com" {
		t.Errorf("IdentityFromContext = %+v", got)
	}

	if IdentityFromContext(context.Background()) != nil {
		t.Error("expected nil identity from empty context")
	}
}
