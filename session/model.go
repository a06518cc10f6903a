package session

import "time"

// Session is the server-side record behind a session token.
//
// ExpiresAt is the absolute lifetime cap (unix seconds). The Redis key TTL is the
// idle window and never outlives ExpiresAt.
type Session struct {
	SessionID string
	UserID    int64

	// Remember marks a remember-me session: its window slides on every read.
	Remember bool
	Window   time.Duration

	IPHash        [32]byte
	UserAgentHash [32]byte

	CreatedAt int64
	ExpiresAt int64
}

// RemainingAbsolute returns how long the session may still live regardless of
// sliding renewals.
func (s *Session) RemainingAbsolute(now time.Time) time.Duration {
	if s.ExpiresAt <= 0 {
		return s.Window
	}
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
