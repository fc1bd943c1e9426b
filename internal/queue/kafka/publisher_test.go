package kafka

import (
	"context"
	"errors"
	"testing"

	kgo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

type fakeWriter struct {
	msgs     []kgo.Message
	err      error
	closed   bool
	closeErr error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kgo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return f.closeErr
}

func TestPublishWritesKeyAndValue(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := NewWithWriter(w, "bgg-game-ids")

	require.NoError(t, p.Publish(context.Background(), "105"))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "105", string(w.msgs[0].Key))
	assert.Equal(t, "105", string(w.msgs[0].Value))
	assert.False(t, w.msgs[0].Time.IsZero())
}

func TestPublishWrapsWriterError(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewWithWriter(w, "bgg-game-ids")

	err := p.Publish(context.Background(), "105")
	require.ErrorIs(t, err, crawler.ErrPublish)
	assert.Contains(t, err.Error(), "kafka://bgg-game-ids")
}

func TestClose(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	require.NoError(t, NewWithWriter(w, "t").Close())
	assert.True(t, w.closed)

	require.Error(t, NewWithWriter(&fakeWriter{closeErr: errors.New("boom")}, "t").Close())
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Brokers: []string{" ", ""}})
	require.Error(t, err)

	p, err := New(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, p.topic)
	w, ok := p.writer.(*kgo.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
	require.NoError(t, p.Close())
}
