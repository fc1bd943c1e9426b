// Package storage holds what every checkpoint backend shares: the on-disk text
// encoding of the crawl cursor and a mock store for tests. Concrete backends
// live in the subpackages (s3, gcs, local, memory, redis, postgres).
package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// ContentType is attached to checkpoint objects in blob stores.
const ContentType = "text/plain; charset=utf-8"

// EncodeCursor renders a cursor as UTF-8 decimal text.
func EncodeCursor(c crawler.Cursor) []byte {
	return []byte(c.String())
}

// DecodeCursor parses a stored checkpoint. Surrounding whitespace is ignored.
func DecodeCursor(raw []byte) (crawler.Cursor, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, fmt.Errorf("%w: empty value", crawler.ErrCheckpointInvalid)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal integer", crawler.ErrCheckpointInvalid, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative cursor %d", crawler.ErrCheckpointInvalid, n)
	}
	return crawler.Cursor(n), nil
}

// NotFound wraps crawler.ErrCheckpointNotFound with the location that was read.
func NotFound(location string) error {
	return fmt.Errorf("%w at %s", crawler.ErrCheckpointNotFound, location)
}

// Failure wraps an I/O error as crawler.ErrCheckpointStorage.
func Failure(op, location string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", crawler.ErrCheckpointStorage, op, location, err)
}
