package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/config"
)

// Authentication headers.
const (
	HeaderAPIKey     = "X-API-Key"
	HeaderRemoteUser = "X-Remote-User"
)

// Authenticate returns middleware that resolves the user of each request
// and stores it with calendar.ContextWithUserID.
//
// A known X-API-Key always identifies its user. If RequireAPIKey is true,
// requests without a valid key are rejected. Otherwise the user may come
// from X-Remote-User, which is only honoured on requests from a trusted
// proxy, or from anyone when no trusted proxies are configured.
func Authenticate(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	users := cfg.Users()
	anyProxy := len(cfg.TrustedProxies) == 0

	if !cfg.RequireAPIKey && anyProxy {
		slog.Warn("auth: X-Remote-User accepted from any client; set TRUSTED_PROXIES or REQUIRE_API_KEY in production")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get(HeaderAPIKey); apiKey != "" {
				userID, ok := lookupAPIKey(apiKey, users)
				if !ok {
					slog.Warn("auth: invalid API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH002")
					return
				}
				next.ServeHTTP(w, r.WithContext(calendar.ContextWithUserID(r.Context(), userID)))
				return
			}

			if cfg.RequireAPIKey {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH001")
				return
			}

			userID := strings.TrimSpace(r.Header.Get(HeaderRemoteUser))
			if userID == "" || !(anyProxy || ViaTrustedProxy(r)) {
				writeAuthError(w, http.StatusUnauthorized, "authentication required", "AUTH001")
				return
			}

			next.ServeHTTP(w, r.WithContext(calendar.ContextWithUserID(r.Context(), userID)))
		})
	}
}

// lookupAPIKey finds the user of key.
// Uses constant-time comparison and checks ALL keys to prevent timing attacks.
func lookupAPIKey(key string, users map[string]string) (string, bool) {
	var userID string
	found := 0
	for validKey, user := range users {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			userID = user
			found = 1
		}
	}
	return userID, found == 1
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message, "code": code})
}
