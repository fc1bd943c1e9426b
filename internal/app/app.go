// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/api"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/clock/system"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/config"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	collyfetcher "github.com/JakeFAU/bgg-catalog-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/id/uuid"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/queue"
	queuekafka "github.com/JakeFAU/bgg-catalog-harvester/internal/queue/kafka"
	queuememory "github.com/JakeFAU/bgg-catalog-harvester/internal/queue/memory"
	queuepubsub "github.com/JakeFAU/bgg-catalog-harvester/internal/queue/pubsub"
	queuesqs "github.com/JakeFAU/bgg-catalog-harvester/internal/queue/sqs"
	storagegcs "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/gcs"
	storagelocal "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/local"
	storagememory "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/memory"
	storagepostgres "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/postgres"
	storageredis "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/redis"
	storages3 "github.com/JakeFAU/bgg-catalog-harvester/internal/storage/s3"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/worker"
)

// SchemaEnsurer is implemented by checkpoint stores that can create their own
// backing schema (the Postgres table).
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// App holds the shared, long-lived services. It is built once per command
// invocation; the crawl-only services are created lazily by NewWorker.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	runID     string
	clock     *system.Clock
	store     crawler.CheckpointStore
	publisher queue.Provider
	closers   []func() error
}

// New builds the checkpoint store and run identity. A nil ids falls back to
// UUIDv7 run ids. It fails fast when the store cannot be constructed.
func New(ctx context.Context, cfg config.Config, ids crawler.IDGenerator, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ids == nil {
		ids = uuid.New()
	}
	runID, err := ids.NewID()
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:    cfg,
		logger: logger.With(zap.String("run_id", runID)),
		runID:  runID,
		clock:  system.New(),
	}

	store, closer, err := NewCheckpointStore(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize checkpoint store: %w", err)
	}
	a.store = store
	a.addCloser(closer)
	a.logger.Info("checkpoint store ready", zap.String("provider", cfg.Checkpoint.Provider))
	return a, nil
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// RunID returns the identifier of this invocation.
func (a *App) RunID() string {
	return a.runID
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// CheckpointStore returns the configured checkpoint backend.
func (a *App) CheckpointStore() crawler.CheckpointStore {
	return a.store
}

// NewWorker builds the publisher and fetcher and wires them into a Worker.
func (a *App) NewWorker(ctx context.Context) (*worker.Worker, error) {
	publisher, err := NewPublisher(ctx, a.cfg.Queue, a.runID, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.publisher = publisher
	a.addCloser(publisher.Close)
	a.logger.Info("work queue ready", zap.String("provider", a.cfg.Queue.Provider))

	fetcher, err := NewFetcher(a.cfg.Catalog, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	return worker.New(
		a.store,
		fetcher,
		crawler.NewCategoryClassifier(a.cfg.Crawl.TargetCategory),
		publisher,
		crawler.NewRetryPolicy(a.cfg.RetryConfig()),
		a.clock,
		a.clock,
		worker.Config{
			BatchSize:           a.cfg.Crawl.BatchSize,
			FlushInterval:       a.cfg.Crawl.FlushInterval,
			BatchDelay:          a.cfg.Crawl.BatchDelay,
			EndOfSpaceThreshold: crawler.Cursor(a.cfg.Crawl.EndOfSpaceThreshold),
			RunID:               a.runID,
		},
		a.logger.Named("worker"),
	), nil
}

// StatusServer returns the operator HTTP server for progress, or nil when
// metrics.addr is empty.
func (a *App) StatusServer(progress api.ProgressSource) *api.Server {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}
	return api.NewServer(progress, a.logger.Named("api"))
}

// Close releases every service in reverse construction order.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func (a *App) addCloser(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// NewCheckpointStore builds the store named by cfg.Provider. The returned
// closer may be nil.
func NewCheckpointStore(ctx context.Context, cfg config.CheckpointConfig) (crawler.CheckpointStore, func() error, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		s3cfg := storages3.Config{
			Bucket:          cfg.Bucket,
			Key:             cfg.Key,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		}
		client, err := storages3.NewClient(ctx, s3cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := storages3.New(client, s3cfg)
		return store, nil, err
	case config.ProviderGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := storagegcs.New(client, storagegcs.Config{Bucket: cfg.Bucket, Object: cfg.Key})
		if err != nil {
			return nil, nil, errors.Join(err, client.Close())
		}
		return store, client.Close, nil
	case config.ProviderLocal:
		store, err := storagelocal.New(storagelocal.Config{BaseDir: cfg.Local.BaseDir, Key: cfg.Key})
		return store, nil, err
	case config.ProviderMemory:
		return storagememory.NewSeededCheckpointStore(crawler.Cursor(cfg.Memory.Start)), nil, nil
	case config.ProviderRedis:
		client := storageredis.NewClient(storageredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := storageredis.New(client, cfg.Key)
		if err != nil {
			return nil, nil, errors.Join(err, client.Close())
		}
		return store, store.Close, nil
	case config.ProviderPostgres:
		store, err := storagepostgres.New(ctx, storagepostgres.Config{
			DSN:   cfg.Postgres.DSN,
			Table: cfg.Postgres.Table,
			Name:  cfg.Key,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { store.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint provider: %s", cfg.Provider)
	}
}

// NewPublisher builds the work queue named by cfg.Provider.
func NewPublisher(ctx context.Context, cfg config.QueueConfig, runID string, logger *zap.Logger) (queue.Provider, error) {
	switch cfg.Provider {
	case config.ProviderSQS:
		sqsCfg := queuesqs.Config{Name: cfg.SQS.Name, URL: cfg.SQS.URL, Region: cfg.SQS.Region, Endpoint: cfg.SQS.Endpoint}
		client, err := queuesqs.NewClient(ctx, sqsCfg)
		if err != nil {
			return nil, err
		}
		return queuesqs.New(ctx, client, sqsCfg)
	case config.ProviderPubSub:
		return queuepubsub.New(ctx, queuepubsub.Config{
			ProjectID: cfg.PubSub.ProjectID,
			TopicID:   cfg.PubSub.TopicID,
			RunID:     runID,
		}, logger)
	case config.ProviderKafka:
		return queuekafka.New(queuekafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	case config.ProviderMemory:
		return queuememory.New(), nil
	case config.ProviderNoop:
		logger.Info("using no-op queue provider; matching ids will be discarded")
		return &queue.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown queue provider: %s", cfg.Provider)
	}
}

// NewFetcher builds the catalog fetcher with its rate limiter.
func NewFetcher(cfg config.CatalogConfig, logger *zap.Logger) (*collyfetcher.Fetcher, error) {
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.RequestsPerSecond, Burst: 1})
	return collyfetcher.New(collyfetcher.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	}, collyfetcher.WithLimiter(limiter), collyfetcher.WithLogger(logger.Named("fetcher")))
}
