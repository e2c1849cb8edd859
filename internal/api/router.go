package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gobang-online/internal/api/handler"
	"github.com/mcoot/gobang-online/internal/api/middleware"
	httpmw "github.com/mcoot/gobang-online/internal/middleware"
	"github.com/mcoot/gobang-online/internal/services/auth"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	Stats        handler.StatsSource
	SecureCookie bool
}

// Register mounts the API routes under /api/v1 on r
func Register(r *mux.Router, cfg RouterConfig) {
	userHandler := handler.NewUserHandler(cfg.AuthService, cfg.SecureCookie)
	statsHandler := handler.NewStatsHandler(cfg.Stats)

	authMiddleware := middleware.Auth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(httpmw.Logging(cfg.Logger))

	// User routes (no auth required for registering or logging in)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	users := api.PathPrefix("/users").Subrouter()
	users.Use(authMiddleware)
	users.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	users.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)

	api.HandleFunc("/stats", statsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
}

// NewRouter creates a router serving only the API
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	Register(r, cfg)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
