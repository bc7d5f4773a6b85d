package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a finalized purchase. Items is a snapshot of the cart at confirmation time.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Items         []CartItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	ShippingInfo  string          `json:"shipping_info"`
	PaymentMethod string          `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ETA           string          `json:"eta"`
}

// OrderFinder is the read-only view of the order store used for validated status lookups.
type OrderFinder interface {
	// FindByID returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id string) (*Order, error)
}
