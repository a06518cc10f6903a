package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the failed-login counter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Window    time.Duration // 0 = counter persists until reset
	Prefix    string
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// The counter is seeded from the durable failure count on first use so a Redis
// flush cannot grant an attacker a fresh budget.
const recordFailureScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("SET", KEYS[1], ARGV[1])
  local window = tonumber(ARGV[2])
  if window > 0 then
    redis.call("PEXPIRE", KEYS[1], window)
  end
end
return redis.call("INCR", KEYS[1])
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// LockoutLimiter tracks failed login attempts per principal and reports when the
// lock threshold is reached.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) key(userID int64) string {
	return l.config.Prefix + "login_failures:" + strconv.FormatInt(userID, 10)
}

// RecordFailure atomically increments the failure counter for a user, seeding it
// with persisted when the counter does not exist yet. It returns the new count and
// whether the threshold has been reached (caller should lock the account).
func (l *LockoutLimiter) RecordFailure(ctx context.Context, userID int64, persisted int) (int, bool, error) {
	if l == nil || !l.config.Enabled {
		return persisted + 1, false, nil
	}
	if persisted < 0 {
		persisted = 0
	}

	count, err := recordFailureLua.Run(
		ctx,
		l.redis,
		[]string{l.key(userID)},
		persisted,
		l.config.Window.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return int(count), l.config.Threshold > 0 && count >= int64(l.config.Threshold), nil
}

// Reset clears the failure counter for a user (e.g., after successful login or manual unlock).
func (l *LockoutLimiter) Reset(ctx context.Context, userID int64) error {
	if l == nil || !l.config.Enabled {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// GetFailureCount returns the current failure count for a user.
func (l *LockoutLimiter) GetFailureCount(ctx context.Context, userID int64) (int, error) {
	if l == nil || !l.config.Enabled {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
