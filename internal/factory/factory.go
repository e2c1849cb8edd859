package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/gobang-online/internal/api"
	"github.com/mcoot/gobang-online/internal/dependencies/clock"
	"github.com/mcoot/gobang-online/internal/dependencies/random"
	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/auth"
	"github.com/mcoot/gobang-online/internal/services/board"
	"github.com/mcoot/gobang-online/internal/services/matcher"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/services/room"
	"github.com/mcoot/gobang-online/internal/services/session"
	"github.com/mcoot/gobang-online/internal/storage"
	"github.com/mcoot/gobang-online/internal/storage/memory"
	"github.com/mcoot/gobang-online/internal/storage/postgres"
	redisstorage "github.com/mcoot/gobang-online/internal/storage/redis"
	"github.com/mcoot/gobang-online/internal/web"
	"github.com/mcoot/gobang-online/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry     *registry.Registry
	BoardService *board.Service
	RoomManager  *room.Manager
	Matcher      *matcher.Matcher
	Sessions     *session.Manager
	AuthService  *auth.Service

	// Transport
	Hub       *ws.Hub
	WSHandler *ws.Handler

	logger *slog.Logger
	secure bool
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// DenyList is the chat moderation list; nil uses the room default
	DenyList []string
	// SecureCookie marks the session cookie Secure
	SecureCookie bool
	// CheckOrigin overrides the WebSocket same-origin check (optional)
	CheckOrigin func(r *http.Request) bool
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	authCfg := cfg.AuthConfig
	if authCfg.SessionTimeout == 0 {
		authCfg.SessionTimeout = auth.DefaultConfig().SessionTimeout
	}

	return newWithDependencies(store, clock.New(), random.New(), authCfg, cfg, logger), nil
}

func newStorage(cfg Config, logger *slog.Logger) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return postgres.New(*cfg.PostgresConfig, logger)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, cfg Config, logger *slog.Logger) *App {
	reg := registry.New(logger)
	boardService := board.New()
	rooms := room.NewManager(reg, store, boardService, cfg.DenyList, logger)
	m := matcher.New(store, reg, rooms, logger)
	sessions := session.NewManager(clk, rnd, logger)
	authService := auth.New(store, sessions, clk, authCfg, logger)

	hub := ws.NewHub(logger)
	go hub.Run()

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Auth:        authService,
		Registry:    reg,
		Matcher:     m,
		Rooms:       rooms,
		Hub:         hub,
		Logger:      logger,
		CheckOrigin: cfg.CheckOrigin,
	})

	return &App{
		Storage:      store,
		Clock:        clk,
		Random:       rnd,
		Registry:     reg,
		BoardService: boardService,
		RoomManager:  rooms,
		Matcher:      m,
		Sessions:     sessions,
		AuthService:  authService,
		Hub:          hub,
		WSHandler:    wsHandler,
		logger:       logger,
		secure:       cfg.SecureCookie,
	}
}

// Handler returns the complete HTTP handler serving the API, the WebSocket
// endpoints and the static client from webRoot
func (a *App) Handler(webRoot string) http.Handler {
	return web.NewRouter(web.RouterConfig{
		Logger: a.logger,
		API: api.RouterConfig{
			Logger:       a.logger,
			AuthService:  a.AuthService,
			Stats:        a,
			SecureCookie: a.secure,
		},
		WSHandler: a.WSHandler,
		WebRoot:   webRoot,
	})
}

// PresenceCount returns the number of users connected in ctx
func (a *App) PresenceCount(ctx model.PresenceContext) int {
	return a.Registry.Count(ctx)
}

// RoomCount returns the number of live rooms
func (a *App) RoomCount() int {
	return a.RoomManager.Count()
}

// SessionCount returns the number of live sessions
func (a *App) SessionCount() int {
	return a.Sessions.Count()
}

// QueueLen returns the number of users waiting in tier
func (a *App) QueueLen(tier model.Tier) int {
	return a.Matcher.QueueLen(tier)
}

// Close disconnects clients, stops the matcher and closes storage
func (a *App) Close() error {
	a.Hub.Close()
	a.Matcher.Close()
	return a.Storage.Close()
}
