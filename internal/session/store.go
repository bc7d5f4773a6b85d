// Package session persists conversational sessions and serializes work per user.
package session

import (
	"context"
	"sync"

	"github.com/abgdnv/orderbot/internal/engine"
)

// Store loads and saves sessions keyed by user.
type Store interface {
	// Load returns the user's session, or a fresh MENU session if none exists.
	Load(ctx context.Context, userID string) (*engine.Session, error)

	// Save replaces the stored session for s.UserID.
	Save(ctx context.Context, s *engine.Session) error
}

// inMemory implements Store using a map. Sessions are copied on the way in and out.
type inMemory struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

// NewInMemoryStore creates a new instance of Store
func NewInMemoryStore() Store {
	return &inMemory{sessions: make(map[string]*engine.Session)}
}

func (m *inMemory) Load(_ context.Context, userID string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return engine.NewSession(userID), nil
	}
	return s.Clone(), nil
}

func (m *inMemory) Save(_ context.Context, s *engine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.UserID] = s.Clone()
	return nil
}
