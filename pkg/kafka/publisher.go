// Package kafka publishes messaging events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/orderbot/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to a single topic.
func NewPublisher(brokers []string, topic string, batchTimeout time.Duration) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer}
}

// Publish writes the event keyed by its key, so events for the same order land on the same partition.
func (p *Publisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Key()),
		Value:   data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "subject", Value: []byte(event.Subject())}},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
