package auth

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// CachedVerifier remembers successful verifications for TTL so each request
// does not hit the identity provider. Failures are not cached.
type CachedVerifier struct {
	next  Verifier
	ttl   time.Duration
	cache *lru.Cache
	now   func() time.Time
}

type cachedIdentity struct {
	id      Identity
	expires time.Time
}

func NewCachedVerifier(next Verifier, size int, ttl time.Duration) (*CachedVerifier, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedVerifier{next: next, ttl: ttl, cache: c, now: time.Now}, nil
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if e, ok := v.cache.Get(token); ok {
		entry := e.(cachedIdentity)
		if v.now().Before(entry.expires) {
			return entry.id, nil
		}
		v.cache.Remove(token)
	}

	id, err := v.next.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	v.cache.Add(token, cachedIdentity{id: id, expires: v.now().Add(v.ttl)})
	return id, nil
}
