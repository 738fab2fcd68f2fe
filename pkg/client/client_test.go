package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
)

func newComposer(t *testing.T, handler http.HandlerFunc, src session.Source) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Endpoint: srv.URL}, src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestInvokeModel_Success(t *testing.T) {
	c := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invoke_model" {
			t.Errorf("got %s %s, want POST /invoke_model", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}

		var req api.ModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "say hi" || req.Model != "gpt-4o" || req.Temperature != 1.0 || !req.WebSearch {
			t.Errorf("request = %+v", req)
		}

		w.Write([]byte(`{"output":[{"type":"message","content":[{"text":"hi"}]}]}`))
	}, session.Static("tok-1", session.User{ID: "u1"}))

	env := c.InvokeModel(context.Background(), api.ModelRequest{
		Prompt: "say hi", Model: "gpt-4o", Temperature: 1.0, WebSearch: true,
	})

	if env.Failed() {
		t.Fatalf("envelope error = %q, want success", env.Error)
	}
	if !strings.Contains(string(env.Data), `"text":"hi"`) {
		t.Errorf("envelope data = %s", env.Data)
	}
	if c.Loading() {
		t.Error("loading flag still set after success")
	}
}

func TestInvokeModel_NoSession(t *testing.T) {
	var calls atomic.Int32
	c := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, session.Static("", session.User{}))

	env := c.InvokeModel(context.Background(), api.ModelRequest{Prompt: "x", Model: "gpt-4o"})

	if env.Error != NoSessionMessage {
		t.Errorf("error = %q, want %q", env.Error, NoSessionMessage)
	}
	if env.Data != nil {
		t.Errorf("data = %s, want nil", env.Data)
	}
	if calls.Load() != 0 {
		t.Errorf("gateway called %d times without a session", calls.Load())
	}
	if c.Loading() {
		t.Error("loading flag still set")
	}
}

func TestInvokeModel_ServerDetailPreferred(t *testing.T) {
	c := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Model 'nope' is not found in the list of models."}`))
	}, session.Static("tok", session.User{}))

	env := c.InvokeModel(context.Background(), api.ModelRequest{Prompt: "x", Model: "nope"})
	if env.Error != "Model 'nope' is not found in the list of models." {
		t.Errorf("error = %q, want the server detail", env.Error)
	}
}

func TestInvokeModel_NoDetailFallsBackToStatus(t *testing.T) {
	c := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}, session.Static("tok", session.User{}))

	env := c.InvokeModel(context.Background(), api.ModelRequest{Prompt: "x", Model: "gpt-4o"})
	if !env.Failed() || !strings.Contains(env.Error, "502") {
		t.Errorf("error = %q, want a status fallback", env.Error)
	}
}

func TestInvokeModel_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c, err := New(Config{Endpoint: srv.URL}, session.Static("tok", session.User{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	env := c.InvokeModel(context.Background(), api.ModelRequest{Prompt: "x", Model: "gpt-4o"})
	if !env.Failed() {
		t.Fatal("expected transport failure envelope")
	}
	if !strings.Contains(env.Error, "connection refused") {
		t.Errorf("error = %q, want the transport message", env.Error)
	}
	if c.Loading() {
		t.Error("loading flag still set after transport failure")
	}
}

func TestInvokeModel_LoadingDuringCall(t *testing.T) {
	var c *Client
	var loadingDuringCall bool
	c = newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		loadingDuringCall = c.Loading()
		w.Write([]byte(`{"output":[]}`))
	}, session.Static("tok", session.User{}))

	c.InvokeModel(context.Background(), api.ModelRequest{Prompt: "x", Model: "gpt-4o"})

	if !loadingDuringCall {
		t.Error("loading flag was false during the call")
	}
	if c.Loading() {
		t.Error("loading flag not reset after the call")
	}
}
