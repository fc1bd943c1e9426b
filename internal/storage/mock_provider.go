package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// MockCheckpointStore is a mock implementation of crawler.CheckpointStore for testing.
type MockCheckpointStore struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockCheckpointStore) Get(ctx context.Context) (crawler.Cursor, error) {
	args := m.Called(ctx)
	return args.Get(0).(crawler.Cursor), args.Error(1) //nolint:forcetypeassert
}

// Put is the mock implementation of the Put method.
func (m *MockCheckpointStore) Put(ctx context.Context, cursor crawler.Cursor) error {
	args := m.Called(ctx, cursor)
	return args.Error(0) //nolint:wrapcheck
}
