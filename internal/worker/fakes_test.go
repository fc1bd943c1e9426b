package worker

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

type fetchFunc func(call int, ids crawler.IDRange) ([]crawler.Entity, error)

// scriptedFetcher records every requested range and delegates to fn.
type scriptedFetcher struct {
	mu     sync.Mutex
	fn     fetchFunc
	ranges []crawler.IDRange
}

func (f *scriptedFetcher) Fetch(_ context.Context, ids crawler.IDRange) ([]crawler.Entity, error) {
	f.mu.Lock()
	call := len(f.ranges)
	f.ranges = append(f.ranges, ids)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(call, ids)
}

func (f *scriptedFetcher) calls() []crawler.IDRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]crawler.IDRange, len(f.ranges))
	copy(out, f.ranges)
	return out
}

// fullBatch fabricates one non-matching entity per id so no batch looks empty.
func fullBatch(_ int, ids crawler.IDRange) ([]crawler.Entity, error) {
	entities := make([]crawler.Entity, 0, ids.Size)
	for _, id := range ids.IDs() {
		entities = append(entities, crawler.Entity{ID: id.String(), Category: "boardgameexpansion", Name: "x"})
	}
	return entities, nil
}

// blockingFetcher waits for the context to end.
type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, _ crawler.IDRange) ([]crawler.Entity, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// fakeSleeper records requested waits without sleeping. After the
// configured number of waits equal to stopOn it cancels the run.
type fakeSleeper struct {
	mu      sync.Mutex
	waits   []time.Duration
	stopOn  time.Duration
	stopAt  int
	matched int
	cancel  context.CancelFunc
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	if d == s.stopOn {
		s.matched++
		if s.stopAt > 0 && s.matched >= s.stopAt && s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()
	return ctx.Err()
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
