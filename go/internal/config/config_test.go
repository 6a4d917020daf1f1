package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Server.Port)
	assert.Equal(t, []string{"https://rpsls.online"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Room.StrictRoles)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
server:
  port: "9000"
  allowed_origins: ["https://a.example", "https://b.example"]
auth:
  token_ttl: 1h
rate_limit:
  max: 5
  window: 30s
nats:
  url: nats://bus:4222
room:
  strict_roles: false
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("RATE_LIMIT_WINDOW", "2m")
	t.Setenv("ALLOWED_ORIGINS", " https://c.example , ")
	t.Setenv("FORCE_HTTPS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, []string{"https://c.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.ForceHTTPS)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, "rpsls", cfg.NATS.SubjectPrefix)
	assert.False(t, cfg.Room.StrictRoles)
}

func TestLoad_IgnoresUnparsableEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "lots")
	t.Setenv("STRICT_ROLES", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.True(t, cfg.Room.StrictRoles)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_MAX", "0")
		t.Setenv("TOKEN_TTL", "-1h")
		_, err := Load("")
		require.Error(t, err)
		assert.ErrorContains(t, err, "rate limit max must be positive")
		assert.ErrorContains(t, err, "token ttl must be positive")
	})
}
