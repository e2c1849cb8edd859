package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/gobang-online/internal/middleware"
)

const errorPage = `<!DOCTYPE html>
<html>
<head><title>Gobang - error</title></head>
<body>
<h1>The game server ran into a problem</h1>
<p>Your session is kept for a short while. Log in again to get back to the hall.</p>
<p><a href="/login.html">Back to login</a></p>
</body>
</html>`

// Recovery serves an HTML error page for panics while serving the browser
// client
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(errorPage))
	})
}
