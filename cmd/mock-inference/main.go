// Command mock-inference runs a deterministic Responses API server for
// local development and testing. It returns predictable output based on
// request content so the gateway and browser shell can be exercised
// without a real inference backend.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/responses", handleResponses)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock inference backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock inference backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock inference backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type responsesRequest struct {
	Model       string   `json:"model"`
	Input       string   `json:"input"`
	Temperature *float64 `json:"temperature"`
	Tools       []tool   `json:"tools,omitempty"`
	Store       bool     `json:"store"`
}

type tool struct {
	Type string `json:"type"`
}

// --- Response types ---

type response struct {
	ID     string        `json:"id"`
	Object string        `json:"object"`
	Model  string        `json:"model"`
	Status string        `json:"status"`
	Output []outputEntry `json:"output"`
	Usage  usage         `json:"usage"`
}

type outputEntry struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type apiError struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Handler ---

func handleResponses(w http.ResponseWriter, r *http.Request) {
	var req responsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The startup probe sends a sentinel model; answer with a JSON error
	// so the caller can tell a Responses endpoint from a bare 404.
	if req.Model == "_probe" {
		writeError(w, http.StatusBadRequest, "model '_probe' does not exist")
		return
	}

	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	text := generateText(&req)

	resp := response{
		ID:     "resp_mock_1",
		Object: "response",
		Model:  req.Model,
		Status: "completed",
		Output: []outputEntry{
			{
				Type: "message",
				Role: "assistant",
				Content: []contentPart{
					{Type: "output_text", Text: text},
				},
			},
		},
		Usage: usage{
			InputTokens:  len(strings.Fields(req.Input)),
			OutputTokens: len(strings.Fields(text)),
			TotalTokens:  len(strings.Fields(req.Input)) + len(strings.Fields(text)),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// generateText produces a deterministic reply from the request content.
func generateText(req *responsesRequest) string {
	input := strings.ToLower(req.Input)

	if hasWebSearch(req) {
		return "Based on a web search, here is what I found about: " + req.Input
	}

	switch {
	case strings.Contains(input, "count from 1 to 5"):
		return "1, 2, 3, 4, 5"
	case strings.Contains(input, "hello"):
		return "Hello! How can I help you today?"
	case strings.Contains(input, "error"):
		return "Everything looks fine from here."
	default:
		return fmt.Sprintf("You said: %s", req.Input)
	}
}

func hasWebSearch(req *responsesRequest) bool {
	for _, t := range req.Tools {
		if t.Type == "web_search_preview" {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: errorBody{
		Message: msg,
		Type:    "invalid_request_error",
	}})
}
