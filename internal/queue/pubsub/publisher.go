// Package pubsub publishes catalog identifiers to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/queue"
)

// RunIDAttribute carries the crawl run identifier on every message.
const RunIDAttribute = "run_id"

// Publisher implements queue.Provider for Google Cloud Pub/Sub.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	runID  string
	logger *zap.Logger
	// ownsClient is true when Close must also close the client.
	ownsClient bool
}

// Config identifies the target topic.
type Config struct {
	ProjectID string
	TopicID   string
	RunID     string
}

// New creates a Pub/Sub client using Application Default Credentials and
// verifies the topic exists.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, fmt.Errorf("pubsub project id and topic id are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	p, err := NewWithClient(ctx, client, cfg, logger)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil && logger != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, err
	}
	p.ownsClient = true
	return p, nil
}

// NewWithClient binds a Publisher to an existing client (primarily for testing).
func NewWithClient(ctx context.Context, client *pubsub.Client, cfg Config, logger *zap.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", cfg.TopicID, cfg.ProjectID)
	}
	return &Publisher{client: client, topic: topic, runID: cfg.RunID, logger: logger}, nil
}

// Publish sends id and waits for the server to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, id string) error {
	msg := &pubsub.Message{Data: []byte(id)}
	if p.runID != "" {
		msg.Attributes = map[string]string{RunIDAttribute: p.runID}
	}
	result := p.topic.Publish(ctx, msg)
	serverID, err := result.Get(ctx)
	if err != nil {
		return queue.PublishError(p.topic.String(), id, err)
	}
	p.logger.Debug("published to pubsub", zap.String("id", id), zap.String("message_id", serverID))
	return nil
}

// Close flushes pending messages and, when owned, closes the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if !p.ownsClient {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}
