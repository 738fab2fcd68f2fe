// Package memory provides an in-memory implementation of storage.Store
// for testing and lightweight deployments. Entries are lost when the
// process restarts. Optional LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/tonyxmella66/prompt-tester/pkg/storage"
)

// Store is an in-memory history store with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*item
	lruList *list.List // front = most recently added, back = oldest
	maxSize int        // 0 = unlimited
}

// item holds a stored entry and its LRU position.
type item struct {
	entry   *storage.Entry
	lruElem *list.Element
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the oldest entry is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*item),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Save persists an entry in memory.
func (s *Store) Save(_ context.Context, e *storage.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; exists {
		return storage.ErrConflict
	}

	// Evict if at capacity.
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(e.ID)
	s.entries[e.ID] = &item{entry: e, lruElem: elem}

	return nil
}

// List returns up to limit entries for the subject, newest first.
func (s *Store) List(_ context.Context, subject string, limit int) ([]*storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*storage.Entry
	for _, it := range s.entries {
		if it.entry.Subject != subject {
			continue
		}
		matches = append(matches, it.entry)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	limit = storage.ClampLimit(limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the oldest entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
