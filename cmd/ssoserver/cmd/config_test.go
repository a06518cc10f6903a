package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/password"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9000"
  shutdown_timeout: 5s
log:
  level: debug
  format: text
database:
  dsn: postgres://sso@localhost/sso
jwt:
  signing_method: hs256
  secret: 0123456789abcdef0123456789abcdef
session:
  ttl: 20m
ticket:
  ttl: 2m
  clients:
    portal:
      - https://portal.example.com/
permission:
  invalidation: targeted
  cache_backend: local
lockout:
  threshold: 3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sso.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SSO_CONFIG", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5, cfg.Lockout.Threshold)
	assert.True(t, cfg.Server.Metrics)
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 20*time.Minute, cfg.Session.TTL)
	// untouched keys keep their defaults
	assert.Equal(t, 7*24*time.Hour, cfg.Session.RememberTTL)
	assert.Equal(t, []string{"https://portal.example.com/"}, cfg.Ticket.Clients["portal"])

	engineCfg, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, engineCfg.Ticket.TTL)
	assert.Equal(t, goSSO.InvalidateTargeted, engineCfg.Permission.Invalidation)
	assert.Equal(t, goSSO.CacheBackendLocal, engineCfg.Permission.CacheBackend)
	assert.Equal(t, 3, engineCfg.Lockout.Threshold)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), engineCfg.JWT.PrivateKey)

	logger := cfg.Logger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SSO_SERVER_ADDR", ":7000")
	t.Setenv("SSO_DATABASE_DSN", "postgres://env@db/sso")
	t.Setenv("SSO_REDIS_DB", "3")
	t.Setenv("SSO_LOCKOUT_THRESHOLD", "8")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "postgres://env@db/sso", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 8, cfg.Lockout.Threshold)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	t.Setenv("SSO_CONFIG", writeConfig(t, sampleYAML))
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "server: [\n"},
		{name: "bad level", yaml: "log:\n  level: loud\n"},
		{name: "bad format", yaml: "log:\n  format: xml\n"},
		{name: "bad duration", yaml: "session:\n  ttl: soon\n"},
		{name: "bad redis db", yaml: "", env: map[string]string{"SSO_REDIS_DB": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngineConfigRequiresKeys(t *testing.T) {
	cfg := defaultConfig()
	_, err := cfg.Engine()
	assert.ErrorContains(t, err, "private_key_file")

	cfg.JWT.SigningMethod = "hs256"
	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "jwt.secret")

	cfg.JWT.Secret = "short"
	_, err = cfg.Engine()
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("SSO_CONFIG", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("correct-horse-battery\n"))
	rootCmd.SetArgs([]string{"hash-password"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(hash, "$argon2id$"), hash)

	h, err := password.NewArgon2(password.DefaultConfig())
	require.NoError(t, err)
	ok, err := h.Verify("correct-horse-battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	t.Setenv("SSO_CONFIG", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetArgs([]string{"hash-password"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	assert.Error(t, rootCmd.Execute())
}
