package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secureConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t, secureConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"), hash)

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher := newHasher(t, secureConfig())

	hash, err := hasher.Hash("correct-password")
	require.NoError(t, err)

	ok, err := hasher.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher := newHasher(t, Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	hash, err := oldHasher.Hash("test-password")
	require.NoError(t, err)

	needsUpgrade, err := newHasher(t, secureConfig()).NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.True(t, needsUpgrade)
}

func TestNeedsUpgradeSameConfig(t *testing.T) {
	hasher := newHasher(t, secureConfig())
	hash, err := hasher.Hash("same-config-password")
	require.NoError(t, err)

	needsUpgrade, err := hasher.NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.False(t, needsUpgrade)
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newHasher(t, secureConfig())

	_, err := hasher.Verify("password", "not-a-phc-hash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedHash))
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher := newHasher(t, secureConfig())
	hash, err := hasher.Hash("version-test")
	require.NoError(t, err)

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	_, err = hasher.Verify("version-test", wrongVersion)
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestHashLengthBounds(t *testing.T) {
	cfg := secureConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	_, err := hasher.Hash("")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = hasher.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = hasher.Hash(strings.Repeat("a", 65))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	require.NoError(t, err)
	ok, err := hasher.Verify(exact, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyTooLongPasswordRejected(t *testing.T) {
	cfg := secureConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	hash, err := hasher.Hash("valid-password-123")
	require.NoError(t, err)

	_, err = hasher.Verify(strings.Repeat("c", 65), hash)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestDefaultLengthBoundsApplied(t *testing.T) {
	hasher := newHasher(t, secureConfig())

	_, err := hasher.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = hasher.Hash(strings.Repeat("e", DefaultMaxPasswordBytes))
	assert.NoError(t, err)

	_, err = hasher.Hash(strings.Repeat("f", DefaultMinPasswordBytes-1))
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestCustomMinimumLength(t *testing.T) {
	cfg := secureConfig()
	cfg.MinPasswordBytes = 5
	hasher := newHasher(t, cfg)

	_, err := hasher.Hash("admin")
	assert.NoError(t, err)
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"bounds":      func(c *Config) { c.MinPasswordBytes = 20; c.MaxPasswordBytes = 10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := secureConfig()
			mutate(&cfg)
			_, err := NewArgon2(cfg)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	_, err := NewArgon2(DefaultConfig())
	assert.NoError(t, err)
}
