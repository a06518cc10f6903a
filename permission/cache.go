package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a resolved grant set may be served from cache.
const DefaultCacheTTL = 2 * time.Hour

// ErrCacheUnavailable is returned when the cache backend fails. Callers fall back
// to the resolver on Get.
var ErrCacheUnavailable = errors.New("permission cache unavailable")

// Cache stores resolved grants per principal. A miss is reported as ok=false,
// never as an error.
type Cache interface {
	Get(ctx context.Context, userID int64) (Grants, bool, error)
	Set(ctx context.Context, userID int64, g Grants) error
	Invalidate(ctx context.Context, userIDs ...int64) error
	InvalidateAll(ctx context.Context) error
}

const scanBatch = 500

// RedisCache keeps roles and permissions under separate keys so other services
// reading "roles:<id>" or "permissions:<id>" see plain JSON arrays.
type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache. A non-positive ttl uses DefaultCacheTTL.
func NewRedisCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{redis: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) rolesKey(userID int64) string {
	return c.prefix + "roles:" + strconv.FormatInt(userID, 10)
}

func (c *RedisCache) permissionsKey(userID int64) string {
	return c.prefix + "permissions:" + strconv.FormatInt(userID, 10)
}

// Get returns the cached grants. Both keys must be present for a hit.
func (c *RedisCache) Get(ctx context.Context, userID int64) (Grants, bool, error) {
	vals, err := c.redis.MGet(ctx, c.rolesKey(userID), c.permissionsKey(userID)).Result()
	if err != nil {
		return Grants{}, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Grants{}, false, nil
	}

	rolesRaw, ok1 := vals[0].(string)
	permsRaw, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return Grants{}, false, nil
	}

	var g Grants
	if err := json.Unmarshal([]byte(rolesRaw), &g.Roles); err != nil {
		return Grants{}, false, nil
	}
	if err := json.Unmarshal([]byte(permsRaw), &g.Permissions); err != nil {
		return Grants{}, false, nil
	}
	return g, true, nil
}

// Set writes both keys with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, userID int64, g Grants) error {
	roles, err := json.Marshal(nonNil(g.Roles))
	if err != nil {
		return err
	}
	perms, err := json.Marshal(nonNil(g.Permissions))
	if err != nil {
		return err
	}

	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.rolesKey(userID), roles, c.ttl)
		pipe.Set(ctx, c.permissionsKey(userID), perms, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Invalidate removes the entries of the given principals.
func (c *RedisCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs)*2)
	for _, id := range userIDs {
		keys = append(keys, c.rolesKey(id), c.permissionsKey(id))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// InvalidateAll removes every cached entry under this cache's prefix.
//
// This is an O(n) SCAN; it runs on RBAC mutations, not on request paths.
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	for _, pattern := range []string{c.prefix + "roles:*", c.prefix + "permissions:*"} {
		if err := c.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func (c *RedisCache) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
