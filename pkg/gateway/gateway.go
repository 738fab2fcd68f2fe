// Package gateway implements the prompt tester API: prompt invocation
// with validation and raw upstream passthrough, a health endpoint, the
// model catalog, and per-user submission history. Error responses use a
// {"detail": "<message>"} body.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/observability"
	"github.com/tonyxmella66/prompt-tester/pkg/storage"
)

// UpstreamDetail is the detail message returned when the inference
// backend fails.
const UpstreamDetail = "Failed to process request with the inference backend"

// Invoker forwards a prompt submission to the inference backend and
// returns the raw response body. Implemented by upstream.Client.
type Invoker interface {
	Invoke(ctx context.Context, req api.ModelRequest) (json.RawMessage, error)
}

// Config holds gateway dependencies and settings.
type Config struct {
	// Upstream forwards invocations to the inference backend. Required.
	Upstream Invoker

	// Store records submission history. Optional; nil disables /history.
	Store storage.Store

	// Auth wraps the protected routes. Optional; nil leaves routes open.
	Auth Middleware

	// CORSOrigin is the single allowed browser origin. Optional.
	CORSOrigin string

	// Logger for request logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Gateway serves the prompt tester API.
type Gateway struct {
	upstream Invoker
	store    storage.Store
	auth     Middleware
	cors     string
	logger   *slog.Logger
}

// New creates a Gateway from the given configuration.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		upstream: cfg.Upstream,
		store:    cfg.Store,
		auth:     cfg.Auth,
		cors:     cfg.CORSOrigin,
		logger:   logger,
	}
}

// Handler returns the fully assembled HTTP handler: routes wrapped in
// recovery, request ID, logging, metrics, CORS, and authentication
// middleware (outermost first).
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke_model", g.handleInvokeModel)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /models", g.handleModels)
	mux.HandleFunc("GET /history", g.handleHistory)

	var handler http.Handler = mux
	if g.auth != nil {
		handler = g.auth(handler)
	}

	return Chain(
		Recovery(),
		RequestID(),
		Logging(g.logger),
		observability.MetricsMiddleware,
		CORS(g.cors),
	)(handler)
}

// writeJSON marshals v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeDetail emits a {"detail": msg} error body with the given status.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
