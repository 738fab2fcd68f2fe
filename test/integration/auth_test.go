package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestInvokeWithoutToken(t *testing.T) {
	resp := authedRequest(t, http.MethodPost, testEnv.Gateway.URL+"/invoke_model", "",
		`{"prompt":"hi","model":"gpt-4o","temperature":1.0}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	decodeJSON(t, resp, &detail)
	if detail.Detail != "Authorization header missing" {
		t.Errorf("detail = %q", detail.Detail)
	}
}

func TestInvokeWithBogusToken(t *testing.T) {
	resp := authedRequest(t, http.MethodPost, testEnv.Gateway.URL+"/invoke_model", "no-such-token",
		`{"prompt":"hi","model":"gpt-4o","temperature":1.0}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	decodeJSON(t, resp, &detail)
	if detail.Detail != "Invalid or expired token" {
		t.Errorf("detail = %q", detail.Detail)
	}
}

// A revoked token stops working on the next request because the gateway
// verifies against the provider on every call.
func TestRevokedTokenRejected(t *testing.T) {
	token := testEnv.signIn(t, "dave@example.com")

	resp := authedRequest(t, http.MethodGet, testEnv.Gateway.URL+"/models", token, "")
	readBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pre-revocation status = %d", resp.StatusCode)
	}

	logout := authedRequest(t, http.MethodPost, testEnv.Provider.URL+"/auth/v1/logout", token, "")
	logout.Body.Close()

	resp = authedRequest(t, http.MethodGet, testEnv.Gateway.URL+"/models", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("post-revocation status = %d, want 401", resp.StatusCode)
	}
}

// TestRateLimitExceeded uses its own environment so the low budget does
// not interfere with the other tests.
func TestRateLimitExceeded(t *testing.T) {
	env := setupTestEnvironment(2)
	defer env.Teardown()

	token := env.signIn(t, "eager@example.com")

	for i := 0; i < 2; i++ {
		resp := authedRequest(t, http.MethodGet, env.Gateway.URL+"/models", token, "")
		readBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, resp.StatusCode)
		}
	}

	resp := authedRequest(t, http.MethodGet, env.Gateway.URL+"/models", token, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	decodeJSON(t, resp, &detail)
	want := "Rate limit exceeded. Maximum 2 requests per 60 seconds."
	if detail.Detail != want {
		t.Errorf("detail = %q, want %q", detail.Detail, want)
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	resp := getURL(t, testEnv.Gateway.URL+"/health")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without credentials", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, `"status":"healthy"`) {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(body, `"timestamp"`) {
		t.Errorf("body = %q, want a timestamp", body)
	}
}
