package permission

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalCache is an in-process Cache for single-node deployments. Entries expire
// after the TTL and the least recently used entry is evicted past size.
type LocalCache struct {
	lru *expirable.LRU[int64, Grants]
}

// NewLocalCache creates a LocalCache. A non-positive ttl uses DefaultCacheTTL.
func NewLocalCache(size int, ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if size <= 0 {
		size = 10000
	}
	return &LocalCache{lru: expirable.NewLRU[int64, Grants](size, nil, ttl)}
}

// Get returns the cached grants for userID.
func (c *LocalCache) Get(_ context.Context, userID int64) (Grants, bool, error) {
	g, ok := c.lru.Get(userID)
	return g, ok, nil
}

// Set stores g for userID.
func (c *LocalCache) Set(_ context.Context, userID int64, g Grants) error {
	c.lru.Add(userID, Grants{
		Roles:       append([]string(nil), nonNil(g.Roles)...),
		Permissions: append([]string(nil), nonNil(g.Permissions)...),
	})
	return nil
}

// Invalidate removes the entries of the given principals.
func (c *LocalCache) Invalidate(_ context.Context, userIDs ...int64) error {
	for _, id := range userIDs {
		c.lru.Remove(id)
	}
	return nil
}

// InvalidateAll empties the cache.
func (c *LocalCache) InvalidateAll(_ context.Context) error {
	c.lru.Purge()
	return nil
}

// Len reports the number of live entries.
func (c *LocalCache) Len() int {
	return c.lru.Len()
}
