package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/auth"
	"github.com/tonyxmella66/prompt-tester/pkg/storage"
)

// handleInvokeModel validates a prompt submission, forwards it to the
// inference backend, and passes the raw response body through unmodified.
func (g *Gateway) handleInvokeModel(w http.ResponseWriter, r *http.Request) {
	var req api.ModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := api.ValidateModelRequest(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	subject := subjectFromContext(r)

	start := time.Now()
	raw, err := g.upstream.Invoke(r.Context(), req)
	duration := time.Since(start)

	if err != nil {
		g.logger.Error("inference backend call failed",
			"error", err,
			"model", req.Model,
			"subject", subject,
			"request_id", RequestIDFromContext(r.Context()),
		)
		g.record(r, subject, req, "error", UpstreamDetail, duration)
		writeDetail(w, http.StatusInternalServerError, UpstreamDetail)
		return
	}

	g.record(r, subject, req, "ok", "", duration)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// handleHealth reports liveness. No authentication.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleModels returns the fixed model catalog.
func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": api.Models})
}

// handleHistory returns the calling user's recent submissions.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		writeDetail(w, http.StatusNotImplemented, "History is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	subject := subjectFromContext(r)

	entries, err := g.store.List(r.Context(), subject, limit)
	if err != nil {
		g.logger.Error("listing history failed", "error", err, "subject", subject)
		writeDetail(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if entries == nil {
		entries = []*storage.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// record saves a submission to the history store, if one is configured.
// Storage failures are logged but never affect the response.
func (g *Gateway) record(r *http.Request, subject string, req api.ModelRequest, status, errMsg string, duration time.Duration) {
	if g.store == nil {
		return
	}

	entry := &storage.Entry{
		ID:          api.NewRequestID(),
		Subject:     subject,
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		WebSearch:   req.WebSearch,
		Status:      status,
		Error:       errMsg,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := g.store.Save(r.Context(), entry); err != nil {
		slog.Warn("recording history entry failed", "error", err, "id", entry.ID)
	}
}

// subjectFromContext resolves the caller's subject from the auth identity.
// Falls back to "anonymous" when authentication is disabled.
func subjectFromContext(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil && id.Subject != "" {
		return id.Subject
	}
	return "anonymous"
}
