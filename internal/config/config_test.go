package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gobang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 30*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, []string{"垃圾"}, cfg.Chat.DenyList)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	path := writeFile(t, `
server:
  port: 9090
storage:
  type: redis
  redis:
    url: redis://cache:6379/1
session:
  idle_timeout: 2m
chat:
  deny_list: ["spam", "scam"]
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Storage.Redis.URL)
	assert.Equal(t, 10, cfg.Storage.Redis.PoolSize, "unset fields keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, []string{"spam", "scam"}, cfg.Chat.DenyList)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeFile(t, "server:\n  port: 7000\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 7000\n")
	t.Setenv("PORT", "7100")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://db/gobang")
	t.Setenv("SESSION_TIMEOUT", "45s")
	t.Setenv("WEB_ROOT", "/srv/www")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://db/gobang", cfg.Storage.Postgres.URL)
	assert.Equal(t, 45*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, "/srv/www", cfg.Web.Root)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"port":    {"PORT": "eighty"},
		"timeout": {"SESSION_TIMEOUT": "soon"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				v, ok := env[k]
				return v, ok
			})
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"redis without url", func(c *Config) { c.Storage.Type = StorageRedis; c.Storage.Redis.URL = "" }},
		{"postgres without url", func(c *Config) { c.Storage.Type = StoragePostgres; c.Storage.Postgres.URL = "" }},
		{"zero timeout", func(c *Config) { c.Session.IdleTimeout = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
