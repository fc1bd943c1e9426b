// Package worker implements the resumable crawl loop: fetch a batch, publish
// the matching identifiers, advance the cursor and periodically persist it.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/metrics"
)

// Defaults mirror the production deployment.
const (
	DefaultBatchSize           = 20
	DefaultFlushInterval       = 100
	DefaultBatchDelay          = time.Second
	DefaultEndOfSpaceThreshold = crawler.Cursor(452300)
)

// Config controls Worker behavior.
type Config struct {
	BatchSize     int
	FlushInterval int
	BatchDelay    time.Duration
	// An empty batch whose first id is strictly greater than this ends the run.
	EndOfSpaceThreshold crawler.Cursor
	RunID               string
}

// Worker walks the identifier space one batch at a time.
type Worker struct {
	store      crawler.CheckpointStore
	fetcher    crawler.BatchFetcher
	classifier crawler.Classifier
	publisher  crawler.Publisher
	retry      *crawler.RetryPolicy
	sleeper    crawler.Sleeper
	clock      crawler.Clock
	cfg        Config
	logger     *zap.Logger

	mu       sync.RWMutex
	progress crawler.Progress
}

// New constructs a Worker.
func New(
	store crawler.CheckpointStore,
	fetcher crawler.BatchFetcher,
	classifier crawler.Classifier,
	publisher crawler.Publisher,
	retry *crawler.RetryPolicy,
	sleeper crawler.Sleeper,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if retry == nil {
		retry = crawler.NewRetryPolicy(crawler.RetryConfig{Delay: time.Second})
	}
	return &Worker{
		store:      store,
		fetcher:    fetcher,
		classifier: classifier,
		publisher:  publisher,
		retry:      retry,
		sleeper:    sleeper,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		progress:   crawler.Progress{RunID: cfg.RunID},
	}
}

// Run loads the checkpoint and crawls until a fatal error or ctx ends. It
// never returns nil: the loop has no natural completion other than the
// end-of-space condition, which is reported as crawler.ErrEndOfSpace.
func (w *Worker) Run(ctx context.Context) error {
	cursor, err := w.store.Get(ctx)
	if err != nil {
		w.logger.Error("failed to read checkpoint", zap.Error(err))
		return fmt.Errorf("read checkpoint: %w", err)
	}
	w.begin(cursor)
	w.logger.Info("starting crawl",
		zap.String("run_id", w.cfg.RunID),
		zap.Int64("cursor", int64(cursor)),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("flush_interval", w.cfg.FlushInterval),
	)

	sinceFlush := 0
	for {
		ids := crawler.RangeAt(cursor, w.cfg.BatchSize)
		entities, err := w.fetchBatch(ctx, ids)
		if err != nil {
			w.logger.Info("crawl stopped", zap.Int64("cursor", int64(cursor)), zap.Error(err))
			return err
		}

		if len(entities) == 0 && ids.Start > w.cfg.EndOfSpaceThreshold {
			metrics.ObserveBatch(metrics.BatchEndOfSpace)
			w.logger.Error("no items returned past the end-of-space threshold",
				zap.Int64("range_start", int64(ids.Start)),
				zap.Int64("range_end", int64(ids.Last())),
				zap.Int64("threshold", int64(w.cfg.EndOfSpaceThreshold)),
			)
			return fmt.Errorf("%w: no items for ids %d-%d", crawler.ErrEndOfSpace, ids.Start, ids.Last())
		}

		w.handleEntities(ctx, entities)
		// A stop mid-batch leaves the cursor on the batch so it is replayed.
		if err := ctx.Err(); err != nil {
			w.logger.Info("crawl stopped", zap.Int64("cursor", int64(cursor)), zap.Error(err))
			return err
		}

		cursor = ids.End()
		sinceFlush += ids.Size
		w.advance(cursor, entities)

		if sinceFlush >= w.cfg.FlushInterval {
			if err := w.flush(ctx, cursor); err != nil {
				return err
			}
			sinceFlush = 0
		}

		if err := w.sleeper.Sleep(ctx, w.cfg.BatchDelay); err != nil {
			w.logger.Info("crawl stopped", zap.Int64("cursor", int64(cursor)), zap.Error(err))
			return err
		}
	}
}

// fetchBatch retries ids until the fetch succeeds or ctx ends.
func (w *Worker) fetchBatch(ctx context.Context, ids crawler.IDRange) ([]crawler.Entity, error) {
	schedule := w.retry.NewBackOff()
	failures := 0
	for {
		w.logger.Debug("querying catalog",
			zap.Int64("range_start", int64(ids.Start)),
			zap.Int64("range_end", int64(ids.Last())),
			zap.Int("attempt", failures+1),
		)
		entities, err := w.fetcher.Fetch(ctx, ids)
		if err == nil {
			if w.retry.Stalled(failures) {
				metrics.SetFetchStalled(false)
				w.logger.Info("catalog fetch recovered",
					zap.Int64("range_start", int64(ids.Start)),
					zap.Int("failures", failures),
				)
			}
			return entities, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		failures++
		w.countFetchFailure()
		delay := schedule.NextBackOff()
		w.logger.Warn("catalog fetch failed, retrying",
			zap.Int64("range_start", int64(ids.Start)),
			zap.Int64("range_end", int64(ids.Last())),
			zap.Int("attempt", failures),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if w.retry.ShouldAlert(failures) {
			metrics.SetFetchStalled(true)
			w.logger.Error("catalog fetch stalled",
				zap.Int64("range_start", int64(ids.Start)),
				zap.Int64("range_end", int64(ids.Last())),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
		}
		if err := w.sleeper.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// handleEntities logs every entity and publishes the matches. Publish
// failures are counted and never interrupt the batch.
func (w *Worker) handleEntities(ctx context.Context, entities []crawler.Entity) {
	for _, entity := range entities {
		matched := w.classifier.Matches(entity)
		metrics.ObserveEntity(matched)
		w.logger.Info("processing item",
			zap.String("id", entity.ID),
			zap.String("category", entity.Category),
			zap.String("name", entity.Name),
			zap.Bool("match", matched),
		)
		if !matched {
			continue
		}
		err := w.publisher.Publish(ctx, entity.ID)
		metrics.ObservePublish(err)
		w.countPublish(err)
		if err != nil {
			w.logger.Error("failed to publish id", zap.String("id", entity.ID), zap.Error(err))
			continue
		}
		w.logger.Debug("published id", zap.String("id", entity.ID))
	}
}

func (w *Worker) flush(ctx context.Context, cursor crawler.Cursor) error {
	err := w.store.Put(ctx, cursor)
	metrics.ObserveCheckpointWrite(int64(cursor), err)
	if err != nil {
		w.logger.Error("failed to write checkpoint", zap.Int64("cursor", int64(cursor)), zap.Error(err))
		return fmt.Errorf("flush checkpoint at %d: %w", cursor, err)
	}
	w.mu.Lock()
	w.progress.PersistedCursor = cursor
	w.mu.Unlock()
	w.logger.Info("checkpoint written", zap.Int64("cursor", int64(cursor)))
	return nil
}

// Snapshot returns the current progress.
func (w *Worker) Snapshot() crawler.Progress {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.progress
}

func (w *Worker) begin(cursor crawler.Cursor) {
	metrics.SetCursor(int64(cursor))
	metrics.SetPersistedCursor(int64(cursor))
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.Cursor = cursor
	w.progress.PersistedCursor = cursor
	if w.clock != nil {
		w.progress.StartedAt = w.clock.Now().UTC().Format(time.RFC3339)
	}
}

func (w *Worker) advance(cursor crawler.Cursor, entities []crawler.Entity) {
	outcome := metrics.BatchOK
	if len(entities) == 0 {
		outcome = metrics.BatchEmpty
	}
	metrics.ObserveBatch(outcome)
	metrics.SetCursor(int64(cursor))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.Cursor = cursor
	w.progress.Batches++
	w.progress.Entities += int64(len(entities))
}

func (w *Worker) countFetchFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.FetchFailures++
}

func (w *Worker) countPublish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.progress.PublishFailures++
		return
	}
	w.progress.Published++
}
