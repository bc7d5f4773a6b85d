// Package store provides storage for confirmed orders.
package store

import (
	"context"

	"github.com/abgdnv/orderbot/internal/engine"
)

// OrderStore is an interface for order storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type OrderStore interface {
	// Insert persists a new order with its items.
	// Returns ErrOrderExists if an order with the same ID is already stored.
	Insert(ctx context.Context, order *engine.Order) error

	// FindByID retrieves a single order by its identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id string) (*engine.Order, error)

	// FindByUserID returns a page of the user's orders, newest first.
	// Returns an empty slice if no orders exist.
	FindByUserID(ctx context.Context, userID string, offset, limit int32) ([]engine.Order, error)
}
