// Package queue defines the downstream work queue abstraction.
// Concrete providers live in the subpackages (sqs, pubsub, kafka, memory);
// each message body is a single catalog identifier in decimal text.
package queue

import (
	"context"
	"fmt"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// Provider defines the common interface for a message queue.
type Provider interface {
	// Publish sends one identifier to the configured queue or topic. It returns
	// once the broker has accepted the message.
	Publish(ctx context.Context, id string) error

	// Close cleans up any client connections and resources.
	Close() error
}

var _ crawler.Publisher = Provider(nil)

// NoOpProvider discards every message. It backs dry runs.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ string) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }

// PublishError wraps a broker failure as crawler.ErrPublish.
func PublishError(target, id string, err error) error {
	return fmt.Errorf("%w: id %s to %s: %w", crawler.ErrPublish, id, target, err)
}
