package listing

import (
	"context"
	"net/url"
	"time"

	"estate-portal/internal/core/cache"
	"estate-portal/internal/domain"
)

// CacheKeyPrefix namespaces listing responses in the shared cache.
const CacheKeyPrefix = "portal:listing:"

// Cached serves repeated backend queries from the cache for ttl. Concurrent identical
// queries share one backend request. Failures are never cached.
type Cached struct {
	next  Fetcher
	cache *cache.Cache
	ttl   time.Duration
}

func NewCached(next Fetcher, c *cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.next.FetchProperties(ctx, q)
	}
	out, err := cache.GetOrLoadJSON(c.cache, ctx, CacheKeyPrefix+q.Encode(), c.ttl,
		func(ctx context.Context) (*[]domain.Property, error) {
			items, err := c.next.FetchProperties(ctx, q)
			if err != nil {
				return nil, err
			}
			return &items, nil
		})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []domain.Property{}, nil
	}
	return *out, nil
}

// Invalidate drops every cached listing response, e.g. after the user changed a property.
func (c *Cached) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.DeletePrefix(ctx, CacheKeyPrefix)
}
