package geocode

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/locksmith-search/internal/models"
)

// Cache is a tiny in-memory TTL cache in front of a Resolver. Postcodes
// map to stable coordinates, so a long TTL is safe.
type Cache struct {
	inner Resolver
	ttl   time.Duration

	mu    sync.RWMutex
	store map[string]cacheEntry
}

type cacheEntry struct {
	pt models.GeoPoint
	ts time.Time
}

func NewCache(inner Resolver, ttl time.Duration) *Cache {
	return &Cache{inner: inner, ttl: ttl, store: make(map[string]cacheEntry)}
}

func cacheKey(postcode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
}

func (c *Cache) Resolve(ctx context.Context, postcode string) (models.GeoPoint, error) {
	k := cacheKey(postcode)

	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if ok && time.Since(e.ts) <= c.ttl {
		return e.pt, nil
	}

	pt, err := c.inner.Resolve(ctx, postcode)
	if err != nil {
		// only successful resolutions are cached; a transient outage
		// must not pin a failure for the TTL
		return models.GeoPoint{}, err
	}

	c.mu.Lock()
	c.store[k] = cacheEntry{pt: pt, ts: time.Now()}
	c.mu.Unlock()
	return pt, nil
}
