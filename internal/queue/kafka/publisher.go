// Package kafka publishes catalog identifiers to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/queue"
)

// DefaultTopic receives identifiers when no topic is configured.
const DefaultTopic = "bgg-game-ids"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config lists the brokers and target topic.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher wraps a Kafka writer. Key and value are both the identifier so a
// given id always lands on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// New creates a Kafka publisher for the given brokers and topic.
func New(cfg Config) (*Publisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: false,
		},
		topic: topic,
	}, nil
}

// NewWithWriter builds a publisher using a custom writer (tests).
func NewWithWriter(writer messageWriter, topic string) *Publisher {
	return &Publisher{writer: writer, topic: topic}
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, id string) error {
	msg := kafka.Message{
		Key:   []byte(id),
		Value: []byte(id),
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return queue.PublishError("kafka://"+p.topic, id, err)
	}
	return nil
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
