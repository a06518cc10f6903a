package goSSO

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSSO/internal"
	internalaudit "github.com/MrEthical07/goSSO/internal/audit"
	"github.com/MrEthical07/goSSO/internal/limiters"
	"github.com/MrEthical07/goSSO/jwt"
	"github.com/MrEthical07/goSSO/password"
	"github.com/MrEthical07/goSSO/permission"
	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/ticket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var _ CredentialUpgrader = (*password.Argon2)(nil)

// Builder assembles an [Engine]. Configure it once during start-up; a Builder
// can build only one Engine.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	principals PrincipalStore
	source     permission.Source
	rbac       RBACWriter
	verifier   CredentialVerifier
	auditSink  AuditSink
	logger     logrus.FieldLogger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared Redis holding sessions, tickets, lockout counters
// and, with the redis cache backend, cached grants.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithPrincipalStore(store PrincipalStore) *Builder {
	b.principals = store
	return b
}

// WithPermissionSource sets the relational RBAC data the resolver joins over.
// A source that also implements [RBACWriter] is used for mutations unless
// WithRBACWriter overrides it.
func (b *Builder) WithPermissionSource(source permission.Source) *Builder {
	b.source = source
	return b
}

func (b *Builder) WithRBACWriter(w RBACWriter) *Builder {
	b.rbac = w
	return b
}

// WithCredentialVerifier replaces the Argon2id verifier built from
// Config.Password.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to the logrus
// standard logger.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every store. It performs no I/O.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.principals == nil {
		return nil, errors.New("principal store required")
	}
	if b.source == nil {
		return nil, errors.New("permission source required")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "sso_engine")

	metrics := NewMetrics(cfg.Metrics)

	// -------- PERMISSIONS --------
	var cache permission.Cache
	switch cfg.Permission.CacheBackend {
	case CacheBackendLocal:
		cache = permission.NewLocalCache(cfg.Permission.LocalSize, cfg.Permission.CacheTTL)
	default:
		cache = permission.NewRedisCache(b.redis, cfg.Session.RedisPrefix, cfg.Permission.CacheTTL)
	}
	resolver := permission.NewResolver(b.source, cfg.Permission.SuperRoleKey)
	cached := permission.NewCachedResolver(resolver, cache, logger)
	cached.OnLookup = func(hit bool) {
		if hit {
			metrics.Inc(MetricPermissionCacheHit)
			return
		}
		metrics.Inc(MetricPermissionCacheMiss)
	}

	rbac := b.rbac
	if rbac == nil {
		if w, ok := b.source.(RBACWriter); ok {
			rbac = w
		}
	}

	// -------- CREDENTIALS --------
	verifier := b.verifier
	if verifier == nil {
		ph, err := password.NewArgon2(password.Config{
			Memory:           cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MinPasswordBytes: cfg.Password.MinPasswordBytes,
			MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
		})
		if err != nil {
			return nil, err
		}
		verifier = ph
	}

	// Unknown accounts are verified against this so they cost as much as a
	// wrong password.
	var dummyHash string
	if seed, err := internal.NewSessionID(); err == nil {
		if h, err := verifier.Hash(seed); err == nil {
			dummyHash = h
		}
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		logger: logger,
		sessionStore: session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.JitterEnabled,
			cfg.Session.JitterRange,
		),
		ticketStore: ticket.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Ticket.TTL, cfg.Ticket.GrantTTL),
		clients:     ticket.Registry(cfg.Ticket.Clients),
		lockout: limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
			Enabled:   true,
			Threshold: cfg.Lockout.Threshold,
			Window:    cfg.Lockout.Window,
			Prefix:    cfg.Session.RedisPrefix,
		}),
		permissions: cached,
		principals:  b.principals,
		rbac:        rbac,
		verifier:    verifier,
		dummyHash:   dummyHash,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics:    metrics,
		jwtManager: jm,
		now:        time.Now,
	}

	b.built = true

	return engine, nil
}
