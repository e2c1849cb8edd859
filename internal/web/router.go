package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gobang-online/internal/api"
	apimw "github.com/mcoot/gobang-online/internal/api/middleware"
	httpmw "github.com/mcoot/gobang-online/internal/middleware"
	"github.com/mcoot/gobang-online/internal/web/middleware"
	"github.com/mcoot/gobang-online/internal/web/ws"
)

// DefaultPage is where the site root redirects
const DefaultPage = "/login.html"

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger    *slog.Logger
	API       api.RouterConfig
	WSHandler *ws.Handler
	WebRoot   string // Directory holding the browser client; empty disables static files
}

// NewRouter creates the top-level router: JSON API, WebSocket endpoints and
// the static browser client
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	api.Register(r, cfg.API)

	sockets := r.PathPrefix("/ws").Subrouter()
	sockets.Use(apimw.Recovery(cfg.Logger))
	sockets.Use(httpmw.Logging(cfg.Logger))
	sockets.HandleFunc("/hall", cfg.WSHandler.ServeHall).Methods(http.MethodGet)
	sockets.HandleFunc("/room", cfg.WSHandler.ServeRoom).Methods(http.MethodGet)

	r.Handle("/", http.RedirectHandler(DefaultPage, http.StatusFound)).Methods(http.MethodGet)

	// Static files
	if cfg.WebRoot != "" {
		static := r.PathPrefix("/").Subrouter()
		static.Use(middleware.Recovery(cfg.Logger))
		static.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebRoot))).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}
