package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// APIKeyEnv is the environment variable holding the server API key.
const APIKeyEnv = "SHEETREVIEW_API_KEY"

// AuthConfig holds API-key authentication settings.
type AuthConfig struct {
	Enabled     bool
	APIKey      string
	HeaderName  string
	PublicPaths []string
}

// DefaultAuthConfig returns the auth settings for an API mounted at prefix.
// Health, readiness and metrics stay public so probes and scrapers work
// without the key.
func DefaultAuthConfig(prefix string) AuthConfig {
	return AuthConfig{
		APIKey:      os.Getenv(APIKeyEnv),
		HeaderName:  "X-API-Key",
		PublicPaths: []string{"/health", "/metrics", prefix + "/health", prefix + "/ready"},
	}
}

// Auth rejects requests to non-public paths that lack the API key. The key
// is read from HeaderName or from an Authorization: Bearer header. Browsers
// cannot set headers on EventSource or WebSocket requests, so an api_key
// query parameter is accepted too.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || slices.Contains(config.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := extractAPIKey(r, config.HeaderName)
			if key == "" || config.APIKey == "" ||
				subtle.ConstantTimeCompare([]byte(key), []byte(config.APIKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", key != "").
					Msg("Authentication failed")

				writeError(w, http.StatusUnauthorized,
					`{"data":null,"error":{"code":"UNAUTHORIZED","message":"Invalid or missing API key","details":"Provide a valid API key in the `+config.HeaderName+` header"}}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request, header string) string {
	if key := r.Header.Get(header); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("api_key")
}
