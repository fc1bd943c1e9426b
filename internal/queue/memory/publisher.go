// Package memory provides an in-process work queue for tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/queue"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("memory queue closed")

// Publisher records every published identifier in order.
type Publisher struct {
	mu     sync.RWMutex
	ids    []string
	failOn map[string]error
	closed bool
}

// New returns an empty memory Publisher.
func New() *Publisher {
	return &Publisher{failOn: make(map[string]error)}
}

// FailOn makes Publish return err for id instead of recording it.
func (p *Publisher) FailOn(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOn[id] = err
}

// Publish records id.
func (p *Publisher) Publish(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return queue.PublishError("memory", id, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return queue.PublishError("memory", id, ErrClosed)
	}
	if err, ok := p.failOn[id]; ok {
		return queue.PublishError("memory", id, err)
	}
	p.ids = append(p.ids, id)
	return nil
}

// IDs returns the recorded identifiers.
func (p *Publisher) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// Close rejects further publishes.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("close: %w", ErrClosed)
	}
	p.closed = true
	return nil
}
