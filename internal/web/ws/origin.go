package ws

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// OriginChecker builds an upgrader CheckOrigin from a list of allowed
// origins. An empty list returns nil, which keeps gorilla's same-origin
// check. "*" allows every origin.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	normalized := make([]string, 0, len(allowed))
	for _, origin := range allowed {
		normalized = append(normalized, strings.ToLower(strings.TrimSuffix(origin, "/")))
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return slices.Contains(normalized, strings.ToLower(origin))
	}
}
