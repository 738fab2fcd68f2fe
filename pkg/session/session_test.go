package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSignIn(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q, want /auth/v1/token", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q", got)
		}

		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "alice@example.com" || creds["password"] != "hunter2" {
			t.Errorf("credentials = %v", creds)
		}

		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "tok-123",
			TokenType:   "bearer",
			ExpiresIn:   3600,
			User:        User{ID: "user-1", Email: "alice@example.com"},
		})
	})

	sess, err := c.SignIn(context.Background(), "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.AccessToken != "tok-123" {
		t.Errorf("token = %q, want tok-123", sess.AccessToken)
	}
	if sess.User.Email != "alice@example.com" {
		t.Errorf("user email = %q", sess.User.Email)
	}

	// Session should now be cached.
	cur, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur == nil || cur.AccessToken != "tok-123" {
		t.Errorf("cached session = %+v, want tok-123", cur)
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.SignIn(context.Background(), "alice@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if !strings.Contains(err.Error(), "Invalid login credentials") {
		t.Errorf("error %q does not carry the provider message", err)
	}

	cur, _ := c.Current(context.Background())
	if cur != nil {
		t.Error("failed sign-in left a cached session")
	}
}

func TestCurrent_NoSession(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	cur, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur != nil {
		t.Errorf("expected nil session, got %+v", cur)
	}
}

func TestSignOut(t *testing.T) {
	var sawLogout bool
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", User: User{ID: "u"}})
		case "/auth/v1/logout":
			sawLogout = true
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("logout Authorization = %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})

	if _, err := c.SignIn(context.Background(), "a@b.c", "p"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if !sawLogout {
		t.Error("logout endpoint was not called")
	}

	cur, _ := c.Current(context.Background())
	if cur != nil {
		t.Error("session survived sign-out")
	}
}

func TestRevoke(t *testing.T) {
	var sawLogout bool
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/logout" {
			t.Errorf("path = %q, want /auth/v1/logout", r.URL.Path)
		}
		sawLogout = true
		if got := r.Header.Get("Authorization"); got != "Bearer cookie-tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Revoke(context.Background(), "cookie-tok"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !sawLogout {
		t.Error("logout endpoint was not called")
	}
}

func TestRevoke_EmptyToken(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider called for an empty token")
	})
	if err := c.Revoke(context.Background(), ""); err != nil {
		t.Errorf("Revoke with empty token: %v", err)
	}
}

func TestSignOut_NotSignedIn(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider called for sign-out without a session")
	})
	if err := c.SignOut(context.Background()); err != nil {
		t.Errorf("SignOut without session: %v", err)
	}
}

func TestUserInfo(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(User{ID: "user-9", Email: "bob@example.com"})
	})

	user, err := c.UserInfo(context.Background(), "tok-9")
	if err != nil {
		t.Fatalf("UserInfo: %v", err)
	}
	if user.ID != "user-9" || user.Email != "bob@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestStatic(t *testing.T) {
	src := Static("tok", User{ID: "u1"})
	sess, err := src.Current(context.Background())
	if err != nil || sess == nil || sess.AccessToken != "tok" {
		t.Errorf("Static source session = %+v, err = %v", sess, err)
	}

	empty := Static("", User{})
	sess, err = empty.Current(context.Background())
	if err != nil || sess != nil {
		t.Errorf("empty Static source should yield nil session, got %+v", sess)
	}
}
