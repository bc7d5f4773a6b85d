package messaging

import (
	"context"
)

// OrdersCreatedSubject is the subject (NATS) or message key prefix (Kafka) for finalized orders.
const OrdersCreatedSubject = "orders.created"

type Event interface {
	Subject() string
	Key() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
