package goSSO

import (
	"errors"
	"math"
	"net/url"
	"strings"
	"time"
)

// Config is the full engine configuration. Start from [DefaultConfig] and
// override; the Builder validates and copies it, so later edits to the caller's
// value have no effect on a built Engine.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	Ticket     TicketConfig
	Permission PermissionConfig
	Lockout    LockoutConfig
	Password   PasswordConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects how session tokens are signed. The token only names a
// session; its exp is the session's absolute lifetime.
type JWTConfig struct {
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetimes.
//
// Regular sessions live for TTL from login and never slide. Remember-me sessions
// slide by RememberTTL on every validation. Both are capped by AbsoluteLifetime.
type SessionConfig struct {
	RedisPrefix      string
	TTL              time.Duration
	RememberTTL      time.Duration
	AbsoluteLifetime time.Duration
	JitterEnabled    bool
	JitterRange      time.Duration
}

/*
====================================
TICKET CONFIG
====================================
*/

// TicketConfig controls the redirect handshake.
type TicketConfig struct {
	// TTL bounds how long an unredeemed ticket lives.
	TTL time.Duration
	// GrantTTL bounds the handle a client keeps after redeeming a ticket. Zero
	// disables grants and every grant-based operation.
	GrantTTL time.Duration
	// Clients maps client id to allowed redirect URI prefixes. Empty accepts any
	// client.
	Clients map[string][]string
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// Invalidation strategies for RBAC mutations.
const (
	InvalidateAll      = "all"
	InvalidateTargeted = "targeted"
)

// Permission cache backends.
const (
	CacheBackendRedis = "redis"
	CacheBackendLocal = "local"
)

// PermissionConfig controls grant resolution and caching.
type PermissionConfig struct {
	// SuperRoleKey, when held, grants the wildcard permission and the full menu tree.
	SuperRoleKey string
	Invalidation string // "all" (default) or "targeted"
	CacheBackend string // "redis" (default) or "local"
	CacheTTL     time.Duration
	LocalSize    int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls automatic locking after failed logins.
type LockoutConfig struct {
	Threshold int
	// Window bounds the Redis failure counter. Zero keeps it until reset.
	Window time.Duration
	// AutoUnlockAfter unlocks a LOCKED principal on its next login attempt once
	// this long has passed. Zero means locks are lifted only by an administrator.
	AutoUnlockAfter time.Duration
}

// PasswordConfig holds Argon2id parameters for the default credential verifier.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int

	// UpgradeOnLogin rehashes a password after a successful login when its
	// stored hash was made with weaker parameters than the current ones.
	UpgradeOnLogin bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the reference configuration: 30 minute sessions,
// 7 day remember-me, 5 minute tickets, 2 hour permission cache and a lock
// after 5 failures.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix:      "sso:",
			TTL:              30 * time.Minute,
			RememberTTL:      7 * 24 * time.Hour,
			AbsoluteLifetime: 30 * 24 * time.Hour,
			JitterEnabled:    true,
			JitterRange:      30 * time.Second,
		},
		Ticket: TicketConfig{
			TTL:      5 * time.Minute,
			GrantTTL: 7 * 24 * time.Hour,
		},
		Permission: PermissionConfig{
			SuperRoleKey: "admin",
			Invalidation: InvalidateAll,
			CacheBackend: CacheBackendRedis,
			CacheTTL:     2 * time.Hour,
			LocalSize:    10000,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MinPasswordBytes: 10,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.Ticket.Clients != nil {
		out.Ticket.Clients = make(map[string][]string, len(cfg.Ticket.Clients))
		for id, prefixes := range cfg.Ticket.Clients {
			out.Ticket.Clients[id] = append([]string(nil), prefixes...)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RememberTTL <= 0 {
		return errors.New("Session RememberTTL must be > 0")
	}
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("Session AbsoluteLifetime must be > 0")
	}
	if c.Session.AbsoluteLifetime < c.Session.TTL {
		return errors.New("Session AbsoluteLifetime must be >= TTL")
	}
	if c.Session.JitterRange < 0 {
		return errors.New("Session JitterRange must be >= 0")
	}
	if c.Session.JitterRange > time.Duration((math.MaxInt64-1)/2) {
		return errors.New("Session JitterRange is too large")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("Session JitterRange must be > 0 when JitterEnabled is true")
	}

	// Ticket
	if c.Ticket.TTL <= 0 {
		return errors.New("Ticket TTL must be > 0")
	}
	if c.Ticket.TTL > 10*time.Minute {
		return errors.New("Ticket TTL must be <= 10m")
	}
	if c.Ticket.GrantTTL < 0 {
		return errors.New("Ticket GrantTTL must be >= 0")
	}
	for id, prefixes := range c.Ticket.Clients {
		if strings.TrimSpace(id) == "" {
			return errors.New("Ticket Clients must not contain an empty client id")
		}
		for _, p := range prefixes {
			if strings.TrimSpace(p) == "" {
				return errors.New("Ticket Clients redirect prefixes must not be empty")
			}
			if u, err := url.Parse(p); err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
				return errors.New("Ticket Clients redirect prefixes must be absolute URLs without userinfo")
			}
		}
	}

	// Permission
	switch c.Permission.Invalidation {
	case InvalidateAll, InvalidateTargeted:
	default:
		return errors.New("Permission Invalidation must be 'all' or 'targeted'")
	}
	switch c.Permission.CacheBackend {
	case CacheBackendRedis:
	case CacheBackendLocal:
		if c.Permission.LocalSize <= 0 {
			return errors.New("Permission LocalSize must be > 0 for the local cache")
		}
	default:
		return errors.New("Permission CacheBackend must be 'redis' or 'local'")
	}
	if c.Permission.CacheTTL <= 0 {
		return errors.New("Permission CacheTTL must be > 0")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Window < 0 {
		return errors.New("Lockout Window must be >= 0")
	}
	if c.Lockout.AutoUnlockAfter < 0 {
		return errors.New("Lockout AutoUnlockAfter must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
