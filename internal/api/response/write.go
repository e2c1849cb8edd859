package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcoot/gobang-online/internal/api/apierr"
)

// JSON encodes data and writes it with status. Responses may carry session
// credentials, so they are never cached. A value that fails to encode is
// answered with a bare 500 rather than a truncated body.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	if data == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}
	body = append(body, '\n')

	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
