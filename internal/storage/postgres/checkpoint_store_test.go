package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

func newMockStore(t *testing.T) (*CheckpointStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, "", "bgg")
	require.NoError(t, err)
	return store, mock
}

func TestNewWithPoolValidates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(nil, "", "bgg")
	require.Error(t, err)
	_, err = NewWithPool(mock, "bad-name;", "bgg")
	require.Error(t, err)
	_, err = NewWithPool(mock, "", "")
	require.Error(t, err)

	store, err := NewWithPool(mock, "", "bgg")
	require.NoError(t, err)
	assert.Equal(t, "postgres://crawl_checkpoints/bgg", store.Location())
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Name: "bgg"})
	require.Error(t, err)
}

func TestCheckpointStoreGet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT position FROM crawl_checkpoints").
		WithArgs("bgg").
		WillReturnRows(pgxmock.NewRows([]string{"position"}).AddRow(int64(1500)))

	cursor, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawler.Cursor(1500), cursor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStoreGetMissingRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT position FROM crawl_checkpoints").
		WithArgs("bgg").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background())
	require.ErrorIs(t, err, crawler.ErrCheckpointNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStoreGetFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT position FROM crawl_checkpoints").
		WithArgs("bgg").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Get(context.Background())
	require.ErrorIs(t, err, crawler.ErrCheckpointStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStorePut(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO crawl_checkpoints").
		WithArgs("bgg", int64(120)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), 120))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStorePutFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO crawl_checkpoints").
		WithArgs("bgg", int64(140)).
		WillReturnError(errors.New("disk full"))

	require.ErrorIs(t, store.Put(context.Background(), 140), crawler.ErrCheckpointStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS crawl_checkpoints").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
