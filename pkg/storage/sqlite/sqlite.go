// Package sqlite provides a single-file SQLite implementation of
// storage.Store using the pure-Go modernc.org/sqlite driver, so no cgo
// toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tonyxmella66/prompt-tester/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	model       TEXT NOT NULL,
	prompt      TEXT NOT NULL,
	temperature REAL NOT NULL,
	web_search  INTEGER NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_subject_created
	ON history(subject, created_at DESC);
`

// Store is a SQLite-backed history store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the SQLite database at path and ensures the
// schema exists.
func New(ctx context.Context, path string) (*Store, error) {
	// busy_timeout avoids SQLITE_BUSY under concurrent writes.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single writer connection sidesteps SQLite's write locking.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save persists an entry.
func (s *Store) Save(ctx context.Context, e *storage.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (
			id, subject, model, prompt, temperature, web_search,
			status, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Subject, e.Model, e.Prompt, e.Temperature, boolToInt(e.WebSearch),
		e.Status, e.Error, e.DurationMs, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// List returns up to limit entries for the subject, newest first.
func (s *Store) List(ctx context.Context, subject string, limit int) ([]*storage.Entry, error) {
	limit = storage.ClampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, model, prompt, temperature, web_search,
		       status, error, duration_ms, created_at
		FROM history
		WHERE subject = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []*storage.Entry
	for rows.Next() {
		var e storage.Entry
		var webSearch int
		var createdAt string
		if err := rows.Scan(
			&e.ID, &e.Subject, &e.Model, &e.Prompt, &e.Temperature, &webSearch,
			&e.Status, &e.Error, &e.DurationMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.WebSearch = webSearch != 0
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		e.CreatedAt = ts
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	return entries, nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isDuplicateKey detects a SQLite unique constraint violation.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
