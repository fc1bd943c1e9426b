// Package postgres provides a Postgres-backed checkpoint store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable holds one row per named checkpoint.
const DefaultTable = "crawl_checkpoints"

// Config controls the Postgres connection pool and checkpoint row.
type Config struct {
	DSN             string
	Table           string
	Name            string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CheckpointStore reads and writes a single row keyed by checkpoint name.
type CheckpointStore struct {
	pool  pool
	table string
	name  string
}

// New connects to Postgres and returns a store for cfg.Name.
func New(ctx context.Context, cfg Config) (*CheckpointStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("checkpoint.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table, cfg.Name)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table, name string) (*CheckpointStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if name == "" {
		return nil, fmt.Errorf("checkpoint name is required")
	}
	return &CheckpointStore{pool: p, table: table, name: name}, nil
}

// Location renders the row address for logs.
func (s *CheckpointStore) Location() string {
	return fmt.Sprintf("postgres://%s/%s", s.table, s.name)
}

// EnsureSchema creates the checkpoint table when it does not exist.
func (s *CheckpointStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name       TEXT PRIMARY KEY,
	position   BIGINT NOT NULL CHECK (position >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create checkpoint table: %w", err)
	}
	return nil
}

// Get reads the checkpoint row.
func (s *CheckpointStore) Get(ctx context.Context) (crawler.Cursor, error) {
	query := fmt.Sprintf(`SELECT position FROM %s WHERE name = $1`, s.table)
	var position int64
	if err := s.pool.QueryRow(ctx, query, s.name).Scan(&position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.NotFound(s.Location())
		}
		return 0, storage.Failure("select", s.Location(), err)
	}
	if position < 0 {
		return 0, fmt.Errorf("%w: negative cursor %d", crawler.ErrCheckpointInvalid, position)
	}
	return crawler.Cursor(position), nil
}

// Put upserts the checkpoint row.
func (s *CheckpointStore) Put(ctx context.Context, cursor crawler.Cursor) error {
	query := fmt.Sprintf(`
INSERT INTO %s (name, position, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE
SET position = EXCLUDED.position, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.name, int64(cursor)); err != nil {
		return storage.Failure("upsert", s.Location(), err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *CheckpointStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
