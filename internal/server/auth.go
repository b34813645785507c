package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/veil-sh/veil/internal/requestctx"
)

// AuthMiddleware validates X-Veil-Key or Authorization: Bearer <key> and
// stores the caller_id in the request context. apiKeys maps key -> caller_id.
func AuthMiddleware(apiKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Veil-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			var callerID string
			for k, c := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					callerID = c
					break
				}
			}
			if callerID == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.SetCallerID(r.Context(), callerID)))
		})
	}
}

// ParseAPIKeys parses VEIL_API_KEYS (comma-separated; each entry key or
// key:caller_id) into a key -> caller_id map.
func ParseAPIKeys(env string) map[string]string {
	m := make(map[string]string)
	if env == "" {
		return m
	}
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		callerID := "default"
		if idx := strings.Index(part, ":"); idx > 0 {
			callerID = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		m[part] = callerID
	}
	return m
}
