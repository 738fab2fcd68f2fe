package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/storage"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeEntry(id, subject string, createdAt time.Time) *storage.Entry {
	return &storage.Entry{
		ID:          id,
		Subject:     subject,
		Model:       "gpt-4.1-mini",
		Prompt:      "say hello",
		Temperature: 0.7,
		WebSearch:   true,
		Status:      "ok",
		DurationMs:  120,
		CreatedAt:   createdAt,
	}
}

func TestSaveAndList(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		e := makeEntry(fmt.Sprintf("req_%024d", i), "alice", base.Add(time.Duration(i)*time.Second))
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	entries, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	// Newest first, fields round-trip.
	got := entries[0]
	if got.ID != "req_000000000000000000000002" {
		t.Errorf("first entry = %s, want the newest", got.ID)
	}
	if got.Model != "gpt-4.1-mini" || got.Prompt != "say hello" {
		t.Errorf("entry fields = %+v", got)
	}
	if got.Temperature != 0.7 {
		t.Errorf("temperature = %f, want 0.7", got.Temperature)
	}
	if !got.WebSearch {
		t.Error("web_search should round-trip as true")
	}
	if !got.CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("created_at = %s, want %s", got.CreatedAt, base.Add(2*time.Second))
	}
}

func TestSave_DuplicateID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	e := makeEntry("req_dup", "alice", time.Now())
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	err := s.Save(ctx, e)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate Save: err = %v, want ErrConflict", err)
	}
}

func TestList_SubjectScoped(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	s.Save(ctx, makeEntry("req_a", "alice", time.Now()))
	s.Save(ctx, makeEntry("req_b", "bob", time.Now()))

	entries, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "req_a" {
		t.Errorf("alice should only see her own entries, got %d", len(entries))
	}
}

func TestList_Limit(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Save(ctx, makeEntry(fmt.Sprintf("req_%d", i), "alice", base.Add(time.Duration(i)*time.Second)))
	}

	entries, err := s.List(ctx, "alice", 4)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("len = %d, want 4", len(entries))
	}
}

func TestErrorEntry(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	e := makeEntry("req_err", "alice", time.Now())
	e.Status = "error"
	e.Error = "Failed to process request with the inference backend"
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Status != "error" || entries[0].Error == "" {
		t.Errorf("error fields = %+v", entries[0])
	}
}

func TestHealthCheck(t *testing.T) {
	s := setupTestDB(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Save(ctx, makeEntry("req_persist", "alice", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	entries, err := s2.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "req_persist" {
		t.Errorf("entries after reopen = %d", len(entries))
	}
}
