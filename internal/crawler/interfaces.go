package crawler

import (
	"context"
	"time"
)

// CheckpointStore persists the crawl cursor as a single durable value.
type CheckpointStore interface {
	// Get returns the stored cursor. A missing checkpoint yields ErrCheckpointNotFound.
	Get(ctx context.Context) (Cursor, error)
	// Put overwrites the stored cursor.
	Put(ctx context.Context, cursor Cursor) error
}

// BatchFetcher queries the catalog for a whole range in a single request.
type BatchFetcher interface {
	Fetch(ctx context.Context, ids IDRange) ([]Entity, error)
}

// Classifier decides whether an entity belongs to the harvested category.
type Classifier interface {
	Matches(entity Entity) bool
}

// Publisher hands a matching identifier to the downstream work queue.
type Publisher interface {
	Publish(ctx context.Context, id string) error
	Close() error
}

// Sleeper blocks for a duration unless the context finishes first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
