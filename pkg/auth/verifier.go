// Package auth verifies bearer tokens issued by an OpenID Connect provider.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWKSVerifier checks signatures against the provider's published key set.
type JWKSVerifier struct {
	keys     *keyCache
	issuer   string
	clientID string
}

// NewJWKSVerifier fetches the key set once so a bad URL fails at startup.
func NewJWKSVerifier(ctx context.Context, cfg config.AuthConfig) (*JWKSVerifier, error) {
	v := &JWKSVerifier{
		keys:     newKeyCache(cfg.JwksURL, cfg.MinInterval),
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
	}
	if _, err := v.keys.get(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

// Verify checks signature, expiry, issuer and the authorized party.
func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keys.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithClaimValue("azp", v.clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}

// keyCache refetches the key set at most once per ttl and keeps serving
// the last good set while the provider is unreachable.
type keyCache struct {
	mu        sync.RWMutex
	url       string
	ttl       time.Duration
	set       jwk.Set
	fetchedAt time.Time
	now       func() time.Time
	fetch     func(ctx context.Context, url string) (jwk.Set, error)
}

func newKeyCache(url string, ttl time.Duration) *keyCache {
	return &keyCache{
		url: url,
		ttl: ttl,
		now: time.Now,
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
	}
}

func (c *keyCache) fresh() bool {
	return c.set != nil && c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *keyCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	if c.fresh() {
		set := c.set
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh() {
		return c.set, nil
	}
	set, err := c.fetch(ctx, c.url)
	if err != nil {
		if c.set != nil {
			return c.set, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.url, err)
	}
	c.set = set
	c.fetchedAt = c.now()
	return set, nil
}
