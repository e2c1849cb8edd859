// Package config loads the server configuration.
//
// Values start from Default, are overlaid by an optional YAML file (path
// from the --config flag or GOBANG_CONFIG) and finally by environment
// variables, then validated.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/gobang-online/internal/api"
	"github.com/mcoot/gobang-online/internal/storage/postgres"
	redisstorage "github.com/mcoot/gobang-online/internal/storage/redis"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "GOBANG_CONFIG"

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config is the full server configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Session  SessionConfig `yaml:"session"`
	Chat     ChatConfig    `yaml:"chat"`
	Web      WebConfig     `yaml:"web"`
	LogLevel string        `yaml:"log_level"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the user store
type StorageConfig struct {
	// Type is one of memory, redis or postgres
	Type     string              `yaml:"type"`
	Redis    redisstorage.Config `yaml:"redis"`
	Postgres postgres.Config     `yaml:"postgres"`
}

// SessionConfig configures login sessions
type SessionConfig struct {
	// IdleTimeout is how long a session survives without a live connection
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// SecureCookie marks the session cookie Secure
	SecureCookie bool `yaml:"secure_cookie"`
}

// ChatConfig configures in-room chat moderation
type ChatConfig struct {
	DenyList []string `yaml:"deny_list"`
}

// WebConfig configures the browser client
type WebConfig struct {
	// Root is the directory served as static files
	Root string `yaml:"root"`
	// AllowedOrigins lists extra origins allowed to open WebSockets. "*"
	// allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration
func Default() *Config {
	server := api.DefaultServerConfig()
	return &Config{
		Server: ServerConfig{
			Host:            server.Host,
			Port:            server.Port,
			ReadTimeout:     server.ReadTimeout,
			WriteTimeout:    server.WriteTimeout,
			ShutdownTimeout: server.ShutdownTimeout,
		},
		Storage: StorageConfig{
			Type:     StorageMemory,
			Redis:    redisstorage.DefaultConfig(),
			Postgres: postgres.DefaultConfig(),
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Second,
		},
		Chat: ChatConfig{
			DenyList: []string{"垃圾"},
		},
		Web: WebConfig{
			Root: "wwwroot",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the file at path (or
// GOBANG_CONFIG when path is empty) and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into the current config
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnv overrides fields from environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("STORAGE_TYPE"); ok && v != "" {
		c.Storage.Type = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Storage.Redis.URL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Storage.Postgres.URL = v
	}
	if v, ok := lookup("WEB_ROOT"); ok && v != "" {
		c.Web.Root = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("SESSION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TIMEOUT %q: %w", v, err)
		}
		c.Session.IdleTimeout = d
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			errs = append(errs, errors.New("storage.redis.url is required for redis storage"))
		}
	case StoragePostgres:
		if c.Storage.Postgres.URL == "" {
			errs = append(errs, errors.New("storage.postgres.url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage.type: %q", c.Storage.Type))
	}

	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout must be positive: %s", c.Session.IdleTimeout))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}

// APIServerConfig converts the listener settings for api.NewServer
func (c *Config) APIServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}
