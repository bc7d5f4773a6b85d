package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/orderbot/pkg/messaging"
)

type OrderCreatedEvent struct {
	// Carrier holds the propagated trace context.
	Carrier       map[string]string `json:"carrier,omitempty"`
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id"`
	Total         string            `json:"total"`
	ItemCount     int               `json:"item_count"`
	PaymentMethod string            `json:"payment_method"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Key() string {
	return o.OrderID
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
