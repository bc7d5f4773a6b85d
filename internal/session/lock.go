package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker gives one goroutine at a time exclusive access to a user's session.
type Locker interface {
	// Lock blocks until the user's lock is held or ctx is done. The returned
	// function releases the lock and is safe to call more than once.
	Lock(ctx context.Context, userID string) (func(), error)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, userID string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[userID]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.entries[userID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(userID, e)
		return nil, fmt.Errorf("%w: %w", boterrors.ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(userID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(userID string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, userID)
	}
}

// size is the number of live entries.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by all processes using the same Redis.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewRedisLocker creates a Redis lock. ttl bounds how long a crashed holder
// blocks others; wait bounds how long Lock polls before giving up.
func NewRedisLocker(client redis.Cmdable, prefix string, ttl, wait, poll time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, wait: wait, poll: poll}
}

func (r *RedisLocker) key(userID string) string {
	return fmt.Sprintf("%s:lock:%s", r.prefix, userID)
}

func (r *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := r.key(userID)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire lock for user %s: %w", userID, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: user %s: %w", boterrors.ErrLockTimeout, userID, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), r.wait)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err()
		})
	}, nil
}
