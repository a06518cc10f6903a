package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSSO/internal"
	"github.com/redis/go-redis/v9"
)

// Prefix marks every service ticket.
const Prefix = "ST-"

var (
	// ErrNotFound is returned for tickets that were never issued, expired or were
	// already consumed.
	ErrNotFound = errors.New("ticket not found")
	// ErrClientMismatch is returned when the redeeming client differs from the one
	// the ticket was issued to. The ticket is gone afterwards.
	ErrClientMismatch = errors.New("ticket client mismatch")
	// ErrRedisUnavailable is returned when the backing Redis call fails.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	consumeStatusNotFound int64 = 0
	consumeStatusOK       int64 = 1
	consumeStatusMismatch int64 = 2
)

const consumeTicketScript = `
local fields = redis.call("HGETALL", KEYS[1])
if #fields == 0 then
  return {0}
end
redis.call("DEL", KEYS[1])

local entry = {}
for i = 1, #fields, 2 do
  entry[fields[i]] = fields[i + 1]
end

if ARGV[1] ~= "" and entry["clientId"] ~= ARGV[1] then
  return {2}
end

local grant_ttl = tonumber(ARGV[3])
if grant_ttl > 0 then
  redis.call("HSET", KEYS[2],
    "principalId", entry["principalId"] or "",
    "clientId", entry["clientId"] or "",
    "sessionId", entry["sessionId"] or "",
    "grantedAt", ARGV[2])
  redis.call("PEXPIRE", KEYS[2], grant_ttl)
end

return {1, fields}
`

var consumeTicketLua = redis.NewScript(consumeTicketScript)

// Binding is what a ticket proves: who authenticated, for which client, and where
// to send them back.
type Binding struct {
	PrincipalID int64
	ClientID    string
	RedirectURI string
	SessionID   string
	IssuedAt    time.Time
}

// Grant is the post-consumption handle a client application holds.
type Grant struct {
	PrincipalID int64
	ClientID    string
	SessionID   string
	GrantedAt   time.Time
}

// Store issues and consumes tickets in Redis.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	ttl      time.Duration
	grantTTL time.Duration
	now      func() time.Time
}

// NewStore creates a ticket [Store]. ttl bounds the redirect handshake; grantTTL
// bounds the post-consumption grant (0 disables grants).
func NewStore(rdb redis.UniversalClient, prefix string, ttl, grantTTL time.Duration) *Store {
	return &Store{
		redis:    rdb,
		prefix:   prefix,
		ttl:      ttl,
		grantTTL: grantTTL,
		now:      time.Now,
	}
}

func (s *Store) ticketKey(ticket string) string {
	return s.prefix + "ticket:" + ticket
}

func (s *Store) grantKey(ticket string) string {
	return s.prefix + "grant:" + ticket
}

// Issue stores b under a fresh ticket and returns the ticket.
//
//	Performance: 1 MULTI (HSET + PEXPIRE).
func (s *Store) Issue(ctx context.Context, b Binding) (string, error) {
	ticket, err := internal.NewOpaqueToken(Prefix)
	if err != nil {
		return "", err
	}

	issuedAt := b.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}

	key := s.ticketKey(ticket)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"principalId", strconv.FormatInt(b.PrincipalID, 10),
			"clientId", b.ClientID,
			"redirectUri", b.RedirectURI,
			"sessionId", b.SessionID,
			"issuedAt", strconv.FormatInt(issuedAt.Unix(), 10),
		)
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return ticket, nil
}

// Consume atomically redeems a ticket. An empty expectedClientID skips the client
// check. Whatever the outcome, the ticket cannot be redeemed again.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Consume(ctx context.Context, ticket, expectedClientID string) (*Binding, error) {
	if internal.ParseOpaqueToken(Prefix, ticket) != nil {
		return nil, ErrNotFound
	}

	result, err := consumeTicketLua.Run(
		ctx,
		s.redis,
		[]string{s.ticketKey(ticket), s.grantKey(ticket)},
		expectedClientID,
		s.now().Unix(),
		s.grantTTL.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return nil, ErrNotFound
	case consumeStatusMismatch:
		return nil, ErrClientMismatch
	case consumeStatusOK:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing ticket payload", ErrRedisUnavailable)
		}
		raw, ok := parts[1].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: invalid ticket payload", ErrRedisUnavailable)
		}
		return bindingFromFields(pairsToMap(raw))
	default:
		return nil, fmt.Errorf("%w: unknown consume status %d", ErrRedisUnavailable, code)
	}
}

// Grant returns the grant recorded when ticket was consumed.
func (s *Store) Grant(ctx context.Context, ticket string) (*Grant, error) {
	if internal.ParseOpaqueToken(Prefix, ticket) != nil {
		return nil, ErrNotFound
	}

	fields, err := s.redis.HGetAll(ctx, s.grantKey(ticket)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	principalID, err := strconv.ParseInt(fields["principalId"], 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	grantedAt, _ := strconv.ParseInt(fields["grantedAt"], 10, 64)

	return &Grant{
		PrincipalID: principalID,
		ClientID:    fields["clientId"],
		SessionID:   fields["sessionId"],
		GrantedAt:   time.Unix(grantedAt, 0),
	}, nil
}

// RevokeGrant deletes the grant for ticket. Missing grants are not an error.
func (s *Store) RevokeGrant(ctx context.Context, ticket string) error {
	if err := s.redis.Del(ctx, s.grantKey(ticket)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func pairsToMap(raw []interface{}) map[string]string {
	out := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		k, _ := raw[i].(string)
		v, _ := raw[i+1].(string)
		out[k] = v
	}
	return out
}

func bindingFromFields(fields map[string]string) (*Binding, error) {
	principalID, err := strconv.ParseInt(fields["principalId"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt ticket principal", ErrNotFound)
	}
	issuedAt, _ := strconv.ParseInt(fields["issuedAt"], 10, 64)

	return &Binding{
		PrincipalID: principalID,
		ClientID:    fields["clientId"],
		RedirectURI: fields["redirectUri"],
		SessionID:   fields["sessionId"],
		IssuedAt:    time.Unix(issuedAt, 0),
	}, nil
}
