// Package memory keeps the crawl checkpoint in-process for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

// CheckpointStore stores the cursor in memory and records every write.
type CheckpointStore struct {
	mu     sync.RWMutex
	cursor crawler.Cursor
	set    bool
	puts   []crawler.Cursor
}

// NewCheckpointStore creates an empty store; Get fails until Seed or Put is called.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{}
}

// NewSeededCheckpointStore creates a store already holding cursor.
func NewSeededCheckpointStore(cursor crawler.Cursor) *CheckpointStore {
	s := NewCheckpointStore()
	s.Seed(cursor)
	return s
}

// Seed sets the stored cursor without recording a write.
func (s *CheckpointStore) Seed(cursor crawler.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	s.set = true
}

// Get returns the stored cursor.
func (s *CheckpointStore) Get(_ context.Context) (crawler.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return 0, storage.NotFound("memory://checkpoint")
	}
	return s.cursor, nil
}

// Put stores the cursor.
func (s *CheckpointStore) Put(_ context.Context, cursor crawler.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	s.set = true
	s.puts = append(s.puts, cursor)
	return nil
}

// Puts returns a copy of every cursor written through Put.
func (s *CheckpointStore) Puts() []crawler.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Cursor, len(s.puts))
	copy(out, s.puts)
	return out
}
