// Package storage defines the history store interface and shared types for
// its backend implementations (memory, sqlite, postgres).
//
// The history store keeps a record of prompt submissions per subject so
// users can review their recent requests. Storage is optional; the server
// runs without one when storage.type is "none".
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrConflict is returned when an entry with the given ID already exists.
	ErrConflict = errors.New("entry already exists")
)

// Entry is one recorded prompt submission.
type Entry struct {
	ID          string    `json:"id"`
	Subject     string    `json:"-"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Temperature float64   `json:"temperature"`
	WebSearch   bool      `json:"web_search"`
	Status      string    `json:"status"` // "ok" or "error"
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store records and lists prompt submissions.
type Store interface {
	// Save persists an entry. Returns ErrConflict if the ID already exists.
	Save(ctx context.Context, e *Entry) error

	// List returns up to limit entries for the given subject, newest first.
	// A limit <= 0 uses the backend default.
	List(ctx context.Context, subject string, limit int) ([]*Entry, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// DefaultListLimit is used when List is called with limit <= 0.
const DefaultListLimit = 20

// MaxListLimit caps the number of entries a single List call returns.
const MaxListLimit = 100

// ClampLimit normalizes a requested list limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
