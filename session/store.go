package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the backing Redis call fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when the session does not exist or has outlived its
// absolute lifetime.
var ErrNotFound = errors.New("session not found")

const minSlidingTTL = time.Second

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store that handles persistence, expiration,
// sliding window renewal, and per-user revocation.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	jitterEnabled bool
	jitterRange   time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; jitterEnabled and jitterRange spread
// sliding renewals so remember-me sessions created together do not expire together.
func NewStore(
	redis redis.UniversalClient,
	prefix string,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	return &Store{
		redis:         redis,
		prefix:        prefix,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) userKey(userID int64) string {
	return s.prefix + "user_sessions:" + strconv.FormatInt(userID, 10)
}

// Save persists a [Session] to Redis. The key TTL is the session window capped by
// the absolute lifetime. The per-user index lives as long as the longest session
// it may still point at, so it never expires ahead of a live session.
//
//	Performance: 1 MULTI (SET + SADD + EXPIRE NX + EXPIRE GT on the user index).
func (s *Store) Save(ctx context.Context, sess *Session) (time.Time, error) {
	now := time.Now()
	ttl := sess.Window
	remaining := sess.RemainingAbsolute(now)
	if remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return time.Time{}, errors.New("session already expired")
	}

	data, err := Encode(sess)
	if err != nil {
		return time.Time{}, err
	}

	sessionKey := s.key(sess.SessionID)
	userKey := s.userKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		idx := indexTTL(ttl, remaining)
		pipe.ExpireNX(ctx, userKey, idx)
		pipe.ExpireGT(ctx, userKey, idx)
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return now.Add(ttl), nil
}

// Get loads a session. Remember-me sessions have their window renewed as a side
// effect; regular sessions keep their fixed TTL.
//
//	Performance: 1 GET, plus 1 PEXPIRE for remember-me sessions.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Remember {
		if _, err := s.extend(ctx, sess); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

// Peek loads a session and its current expiry without touching its TTL.
func (s *Store) Peek(ctx context.Context, sessionID string) (*Session, time.Time, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, err
	}

	pttl, err := s.redis.PTTL(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return nil, time.Time{}, ErrNotFound
	}

	return sess, time.Now().Add(pttl), nil
}

// Renew pushes the session expiry out by one window, whatever its mode, bounded by
// the absolute lifetime. It returns the new expiry.
func (s *Store) Renew(ctx context.Context, sessionID string) (*Session, time.Time, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, err
	}

	expiresAt, err := s.extend(ctx, sess)
	if err != nil {
		return nil, time.Time{}, err
	}

	return sess, expiresAt, nil
}

// Delete removes a session and its index entry. Deleting a missing session is not
// an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	return s.deleteSessionAndIndex(ctx, sess.UserID, sessionID)
}

// DeleteAllForUser removes all sessions for a user and returns how many were live.
//
// ATOMICITY NOTE: the member read and the delete are separate round trips. A
// session created between them survives this call and is caught by the next one.
func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(sessionID))
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			delCmd = pipe.Del(ctx, sessionKeys...)
		}
		if len(sessionIDs) > 0 {
			pipe.SRem(ctx, userKey, toInterfaces(sessionIDs)...)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if delCmd == nil {
		return 0, nil
	}

	return int(delCmd.Val()), nil
}

// ActiveSessionIDs returns the session IDs indexed for a user. Entries whose key
// already expired are pruned from the index.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID int64) ([]string, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	active := make([]string, 0, len(ids))
	stale := make([]interface{}, 0)
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			active = append(active, ids[i])
			continue
		}
		stale = append(stale, ids[i])
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return active, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	if sess.RemainingAbsolute(time.Now()) <= 0 {
		if err := s.deleteSessionAndIndex(ctx, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

// extend sets the key TTL to the next window. PEXPIRE never recreates a key, so a
// session revoked concurrently stays revoked.
func (s *Store) extend(ctx context.Context, sess *Session) (time.Time, error) {
	now := time.Now()
	nextTTL, err := s.nextSlidingTTL(sess.Window, sess.RemainingAbsolute(now))
	if err != nil {
		return time.Time{}, err
	}

	ok, err := s.redis.PExpire(ctx, s.key(sess.SessionID), nextTTL).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}
	if sess.ExpiresAt <= 0 {
		// No absolute cap: the index must keep up with every slide.
		if err := s.redis.ExpireGT(ctx, s.userKey(sess.UserID), indexTTL(nextTTL, 0)).Err(); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return now.Add(nextTTL), nil
}

// indexTTL is how long the user index must outlive a save: the session's
// absolute remainder, or its window when that is longer. EXPIRE works in whole
// seconds, so the result is rounded up. The index only ever grows its TTL.
func indexTTL(window, remainingAbsolute time.Duration) time.Duration {
	ttl := window
	if remainingAbsolute > ttl {
		ttl = remainingAbsolute
	}
	return ttl.Truncate(time.Second) + time.Second
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, userID int64, sessionID string) error {
	if err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.userKey(userID)},
		sessionID,
	).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) nextSlidingTTL(window, remainingAbsolute time.Duration) (time.Duration, error) {
	nextTTL := window

	if s.jitterEnabled && s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		nextTTL += jitter
	}

	if nextTTL > remainingAbsolute {
		nextTTL = remainingAbsolute
	}

	minTTL := minSlidingTTL
	if remainingAbsolute < minTTL {
		minTTL = remainingAbsolute
	}
	if nextTTL < minTTL {
		nextTTL = minTTL
	}

	return nextTTL, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
