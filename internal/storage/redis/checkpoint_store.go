// Package redis stores the crawl checkpoint under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

// Config captures the Redis connection and key.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// CheckpointStore keeps the cursor as a decimal string value.
type CheckpointStore struct {
	client *redis.Client
	key    string
}

// NewClient builds a Redis client from cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New creates a Redis-backed checkpoint store.
func New(client *redis.Client, key string) (*CheckpointStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("checkpoint key is required")
	}
	return &CheckpointStore{client: client, key: key}, nil
}

// Location renders the key address for logs.
func (s *CheckpointStore) Location() string {
	return "redis://" + s.key
}

// Get reads the cursor key.
func (s *CheckpointStore) Get(ctx context.Context) (crawler.Cursor, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, storage.NotFound(s.Location())
		}
		return 0, storage.Failure("get", s.Location(), err)
	}
	return storage.DecodeCursor([]byte(val))
}

// Put writes the cursor key without expiry.
func (s *CheckpointStore) Put(ctx context.Context, cursor crawler.Cursor) error {
	if err := s.client.Set(ctx, s.key, cursor.String(), 0).Err(); err != nil {
		return storage.Failure("set", s.Location(), err)
	}
	return nil
}

// Close closes the Redis client.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}
