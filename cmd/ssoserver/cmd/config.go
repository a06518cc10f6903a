package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from the YAML file named by
// --config (or SSO_CONFIG), then SSO_* environment variables override them.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Session    SessionConfig    `yaml:"session"`
	Ticket     TicketConfig     `yaml:"ticket"`
	Permission PermissionConfig `yaml:"permission"`
	Lockout    LockoutConfig    `yaml:"lockout"`
	Audit      AuditConfig      `yaml:"audit"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
	AuthRatePerSecond float64       `yaml:"auth_rate_per_second"`
	AuthBurst         int           `yaml:"auth_burst"`
	Metrics           bool          `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	SigningMethod  string        `yaml:"signing_method"`
	Secret         string        `yaml:"secret"`
	PrivateKeyFile string        `yaml:"private_key_file"`
	PublicKeyFile  string        `yaml:"public_key_file"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	Leeway         time.Duration `yaml:"leeway"`
}

type SessionConfig struct {
	Prefix           string        `yaml:"prefix"`
	TTL              time.Duration `yaml:"ttl"`
	RememberTTL      time.Duration `yaml:"remember_ttl"`
	AbsoluteLifetime time.Duration `yaml:"absolute_lifetime"`
}

type TicketConfig struct {
	TTL      time.Duration       `yaml:"ttl"`
	GrantTTL time.Duration       `yaml:"grant_ttl"`
	Clients  map[string][]string `yaml:"clients"`
}

type PermissionConfig struct {
	SuperRole    string        `yaml:"super_role"`
	Invalidation string        `yaml:"invalidation"`
	CacheBackend string        `yaml:"cache_backend"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	LocalSize    int           `yaml:"local_size"`
}

type LockoutConfig struct {
	Threshold       int           `yaml:"threshold"`
	Window          time.Duration `yaml:"window"`
	AutoUnlockAfter time.Duration `yaml:"auto_unlock_after"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
}

func defaultConfig() *Config {
	d := goSSO.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ShutdownTimeout:   15 * time.Second,
			AuthRatePerSecond: 5,
			AuthBurst:         10,
			Metrics:           true,
		},
		Log:   LogConfig{Level: "info", Format: "json"},
		Redis: RedisConfig{Addr: "localhost:6379"},
		JWT: JWTConfig{
			SigningMethod: d.JWT.SigningMethod,
			Issuer:        "ssoserver",
		},
		Session: SessionConfig{
			Prefix:           d.Session.RedisPrefix,
			TTL:              d.Session.TTL,
			RememberTTL:      d.Session.RememberTTL,
			AbsoluteLifetime: d.Session.AbsoluteLifetime,
		},
		Ticket: TicketConfig{
			TTL:      d.Ticket.TTL,
			GrantTTL: d.Ticket.GrantTTL,
		},
		Permission: PermissionConfig{
			SuperRole:    d.Permission.SuperRoleKey,
			Invalidation: d.Permission.Invalidation,
			CacheBackend: d.Permission.CacheBackend,
			CacheTTL:     d.Permission.CacheTTL,
			LocalSize:    d.Permission.LocalSize,
		},
		Lockout: LockoutConfig{
			Threshold:       d.Lockout.Threshold,
			AutoUnlockAfter: 10 * time.Minute,
		},
		Audit: AuditConfig{Enabled: true, BufferSize: d.Audit.BufferSize},
	}
}

// LoadConfig reads path (SSO_CONFIG when empty; defaults only when both are
// empty) and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("SSO_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return nil, fmt.Errorf("log.format: invalid value %q, allowed: json, text", cfg.Log.Format)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "SSO_SERVER_ADDR")
	setString(&c.Log.Level, "SSO_LOG_LEVEL")
	setString(&c.Log.Format, "SSO_LOG_FORMAT")
	setString(&c.Database.DSN, "SSO_DATABASE_DSN")
	setString(&c.Redis.Addr, "SSO_REDIS_ADDR")
	setString(&c.Redis.Password, "SSO_REDIS_PASSWORD")
	setString(&c.JWT.SigningMethod, "SSO_JWT_SIGNING_METHOD")
	setString(&c.JWT.Secret, "SSO_JWT_SECRET")
	setString(&c.JWT.PrivateKeyFile, "SSO_JWT_PRIVATE_KEY_FILE")
	setString(&c.JWT.PublicKeyFile, "SSO_JWT_PUBLIC_KEY_FILE")

	if v, ok := os.LookupEnv("SSO_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SSO_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := os.LookupEnv("SSO_LOCKOUT_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SSO_LOCKOUT_THRESHOLD: %w", err)
		}
		c.Lockout.Threshold = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// Engine converts c into the engine configuration, loading key material from
// disk.
func (c *Config) Engine() (goSSO.Config, error) {
	out := goSSO.DefaultConfig()

	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.Leeway = c.JWT.Leeway
	switch c.JWT.SigningMethod {
	case "hs256":
		if c.JWT.Secret == "" {
			return out, errors.New("jwt.secret is required for hs256")
		}
		out.JWT.PrivateKey = []byte(c.JWT.Secret)
	default:
		if c.JWT.PrivateKeyFile == "" || c.JWT.PublicKeyFile == "" {
			return out, errors.New("jwt.private_key_file and jwt.public_key_file are required for ed25519")
		}
		var err error
		if out.JWT.PrivateKey, err = os.ReadFile(c.JWT.PrivateKeyFile); err != nil {
			return out, fmt.Errorf("read jwt private key: %w", err)
		}
		if out.JWT.PublicKey, err = os.ReadFile(c.JWT.PublicKeyFile); err != nil {
			return out, fmt.Errorf("read jwt public key: %w", err)
		}
	}

	out.Session.RedisPrefix = c.Session.Prefix
	out.Session.TTL = c.Session.TTL
	out.Session.RememberTTL = c.Session.RememberTTL
	out.Session.AbsoluteLifetime = c.Session.AbsoluteLifetime

	out.Ticket.TTL = c.Ticket.TTL
	out.Ticket.GrantTTL = c.Ticket.GrantTTL
	out.Ticket.Clients = c.Ticket.Clients

	out.Permission.SuperRoleKey = c.Permission.SuperRole
	out.Permission.Invalidation = c.Permission.Invalidation
	out.Permission.CacheBackend = c.Permission.CacheBackend
	out.Permission.CacheTTL = c.Permission.CacheTTL
	out.Permission.LocalSize = c.Permission.LocalSize

	out.Lockout.Threshold = c.Lockout.Threshold
	out.Lockout.Window = c.Lockout.Window
	out.Lockout.AutoUnlockAfter = c.Lockout.AutoUnlockAfter

	out.Audit.Enabled = c.Audit.Enabled
	out.Audit.BufferSize = c.Audit.BufferSize
	out.Metrics.Enabled = c.Server.Metrics

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// Logger builds the process logger. LoadConfig has already validated the level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
