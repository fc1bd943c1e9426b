// Package local implements a filesystem-backed checkpoint store.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

// Config captures the parameters for the local filesystem checkpoint store.
type Config struct {
	// BaseDir is the root directory holding the checkpoint file.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Key is the checkpoint file path relative to BaseDir.
	Key string `mapstructure:"key" yaml:"key"`
}

// CheckpointStore keeps the cursor in a single file.
type CheckpointStore struct {
	path string
}

// New creates a new local filesystem-backed checkpoint store.
func New(cfg Config) (*CheckpointStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("checkpoint key is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	fullPath := filepath.Join(cfg.BaseDir, cfg.Key)
	cleanBaseDir := filepath.Clean(cfg.BaseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected")
	}
	return &CheckpointStore{path: fullPath}, nil
}

// Location returns the file:// URI of the checkpoint.
func (s *CheckpointStore) Location() string {
	return "file://" + s.path
}

// Get reads the checkpoint file.
func (s *CheckpointStore) Get(_ context.Context) (crawler.Cursor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, storage.NotFound(s.Location())
		}
		return 0, storage.Failure("read", s.Location(), err)
	}
	return storage.DecodeCursor(data)
}

// Put replaces the checkpoint file atomically (write to a temp file, then rename).
func (s *CheckpointStore) Put(_ context.Context, cursor crawler.Cursor) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return storage.Failure("mkdir", s.Location(), err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return storage.Failure("create temp", s.Location(), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(storage.EncodeCursor(cursor)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storage.Failure("write", s.Location(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storage.Failure("close", s.Location(), err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return storage.Failure("rename", s.Location(), err)
	}
	return nil
}
