package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/gobang-online/internal/api/apierr"
	"github.com/mcoot/gobang-online/internal/middleware"
)

// Recovery answers a panic with the API's JSON internal error. The socket
// routes use it too, since their handshake failures are JSON as well.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
