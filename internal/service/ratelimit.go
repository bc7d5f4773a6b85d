package service

import (
	"sync"
	"time"

	"github.com/abgdnv/orderbot/pkg/config"
	"golang.org/x/time/rate"
)

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter keeps one token bucket per user and forgets users idle longer than idleTTL.
type userLimiter struct {
	mu        sync.Mutex
	enabled   bool
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	buckets   map[string]*userBucket
	lastSweep time.Time
	now       func() time.Time
}

func newUserLimiter(cfg config.RateLimitConfig) *userLimiter {
	return &userLimiter{
		enabled: cfg.Enabled,
		limit:   rate.Limit(cfg.PerSecond),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		buckets: make(map[string]*userBucket),
		now:     time.Now,
	}
}

// Allow reports whether the user may send a message now.
func (l *userLimiter) Allow(userID string) bool {
	if !l.enabled {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *userLimiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, id)
		}
	}
}
