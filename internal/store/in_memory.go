package store

import (
	"context"
	"sort"
	"sync"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
)

// inMemory implements OrderStore using an in-memory map.
type inMemory struct {
	mu     sync.RWMutex
	orders map[string]engine.Order
}

// NewInMemoryStore creates a new instance of OrderStore
func NewInMemoryStore() OrderStore {
	return &inMemory{orders: make(map[string]engine.Order)}
}

func (s *inMemory) Insert(_ context.Context, order *engine.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return boterrors.ErrOrderExists
	}
	s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (s *inMemory) FindByID(_ context.Context, id string) (*engine.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, boterrors.ErrOrderNotFound
	}
	out := copyOrder(o)
	return &out, nil
}

func (s *inMemory) FindByUserID(_ context.Context, userID string, offset, limit int32) ([]engine.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]engine.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			list = append(list, copyOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if int(offset) >= len(list) {
		return []engine.Order{}, nil
	}
	end := len(list)
	if limit > 0 && int(offset)+int(limit) < end {
		end = int(offset) + int(limit)
	}
	return list[offset:end], nil
}

func copyOrder(o engine.Order) engine.Order {
	out := o
	out.Items = make([]engine.CartItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}
