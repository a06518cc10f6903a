package permission

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CachedResolver serves grants from a Cache and falls back to the Resolver on a
// miss. Concurrent misses for the same principal share one resolution.
type CachedResolver struct {
	resolver *Resolver
	cache    Cache
	logger   logrus.FieldLogger
	group    singleflight.Group

	// OnLookup, when set, is called once per Grants call with whether the cache hit.
	OnLookup func(hit bool)
}

// NewCachedResolver wires resolver behind cache. logger receives cache backend
// failures, which never fail a lookup.
func NewCachedResolver(resolver *Resolver, cache Cache, logger logrus.FieldLogger) *CachedResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedResolver{
		resolver: resolver,
		cache:    cache,
		logger:   logger.WithField("component", "permission_cache"),
	}
}

// Resolver returns the uncached resolver.
func (c *CachedResolver) Resolver() *Resolver {
	return c.resolver
}

// Grants returns roles and permissions for userID.
func (c *CachedResolver) Grants(ctx context.Context, userID int64) (Grants, error) {
	g, ok, err := c.cache.Get(ctx, userID)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("permission cache read failed")
	}
	if ok {
		c.observe(true)
		return g, nil
	}
	c.observe(false)

	v, err, _ := c.group.Do(flightKey(userID), func() (interface{}, error) {
		resolved, err := c.resolver.Resolve(ctx, userID)
		if err != nil {
			return Grants{}, err
		}
		if err := c.cache.Set(ctx, userID, resolved); err != nil {
			c.logger.WithError(err).WithField("user_id", userID).Warn("permission cache write failed")
		}
		return resolved, nil
	})
	if err != nil {
		return Grants{}, err
	}
	return v.(Grants), nil
}

// HasPermission reports whether userID currently holds perm.
func (c *CachedResolver) HasPermission(ctx context.Context, userID int64, perm string) (bool, error) {
	g, err := c.Grants(ctx, userID)
	if err != nil {
		return false, err
	}
	return g.HasPermission(perm), nil
}

// HasRole reports whether userID currently holds role.
func (c *CachedResolver) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	g, err := c.Grants(ctx, userID)
	if err != nil {
		return false, err
	}
	return g.HasRole(role), nil
}

// Invalidate drops the cached grants of userIDs. In-flight resolutions for them
// are detached so later callers resolve afresh.
func (c *CachedResolver) Invalidate(ctx context.Context, userIDs ...int64) error {
	for _, id := range userIDs {
		c.group.Forget(flightKey(id))
	}
	return c.cache.Invalidate(ctx, userIDs...)
}

// InvalidateAll drops every cached grant set.
func (c *CachedResolver) InvalidateAll(ctx context.Context) error {
	return c.cache.InvalidateAll(ctx)
}

func (c *CachedResolver) observe(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}

func flightKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
