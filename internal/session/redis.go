package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a JSON document under <prefix>:session:<user>.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed Store. A zero ttl keeps sessions forever.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(userID string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, userID)
}

func (r *RedisStore) Load(ctx context.Context, userID string) (*engine.Session, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", boterrors.ErrLoadSession, err)
	}

	var s engine.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: user %s: %w", boterrors.ErrSessionCorrupted, userID, err)
	}
	if s.UserID == "" {
		s.UserID = userID
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *engine.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrSaveSession, err)
	}
	if err := r.client.Set(ctx, r.key(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrSaveSession, err)
	}
	return nil
}
