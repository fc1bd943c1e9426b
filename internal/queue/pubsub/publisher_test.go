package pubsub_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	queuepubsub "github.com/JakeFAU/bgg-catalog-harvester/internal/queue/pubsub"
)

func newFakeClient(t *testing.T) *pubsub.Client {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublisherPublishesIDWithRunID(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient(t)

	topic, err := client.CreateTopic(ctx, "bgg-ids")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "sub-id", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	p, err := queuepubsub.NewWithClient(ctx, client, queuepubsub.Config{
		ProjectID: "project-id",
		TopicID:   "bgg-ids",
		RunID:     "run-1",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "105"))

	recvCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c := make(chan *pubsub.Message, 1)
	go func() {
		_ = sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case c <- msg:
			default:
			}
		})
	}()

	select {
	case msg := <-c:
		assert.Equal(t, "105", string(msg.Data))
		assert.Equal(t, "run-1", msg.Attributes[queuepubsub.RunIDAttribute])
	case <-time.After(10 * time.Second):
		t.Fatal("message was not delivered")
	}
	cancel()

	require.NoError(t, p.Close())
}

func TestNewWithClientRejectsMissingTopic(t *testing.T) {
	client := newFakeClient(t)

	_, err := queuepubsub.NewWithClient(context.Background(), client, queuepubsub.Config{
		ProjectID: "project-id",
		TopicID:   "absent",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestNewRequiresIdentifiers(t *testing.T) {
	_, err := queuepubsub.New(context.Background(), queuepubsub.Config{}, nil)
	require.Error(t, err)

	_, err = queuepubsub.NewWithClient(context.Background(), nil, queuepubsub.Config{TopicID: "t"}, nil)
	require.Error(t, err)
}
