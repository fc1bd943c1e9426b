// Package gcs stores the crawl checkpoint as an object in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	appstorage "github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Object string
}

// CheckpointStore reads and writes the cursor object in a bucket.
type CheckpointStore struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed checkpoint store.
func New(client *storage.Client, cfg Config) (*CheckpointStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &CheckpointStore{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Location renders the gs:// URI of the checkpoint.
func (s *CheckpointStore) Location() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Get downloads and parses the checkpoint object.
func (s *CheckpointStore) Get(ctx context.Context) (crawler.Cursor, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return 0, appstorage.NotFound(s.Location())
		}
		return 0, appstorage.Failure("open", s.Location(), err)
	}
	defer reader.Close() //nolint:errcheck

	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, appstorage.Failure("read", s.Location(), err)
	}
	return appstorage.DecodeCursor(data)
}

// Put uploads the cursor, replacing the previous object.
func (s *CheckpointStore) Put(ctx context.Context, cursor crawler.Cursor) error {
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = appstorage.ContentType
	if _, err := writer.Write(appstorage.EncodeCursor(cursor)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return appstorage.Failure("write", s.Location(), fmt.Errorf("%w (close writer: %v)", err, closeErr))
		}
		return appstorage.Failure("write", s.Location(), err)
	}
	if err := writer.Close(); err != nil {
		return appstorage.Failure("close", s.Location(), err)
	}
	return nil
}
