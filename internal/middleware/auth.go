package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tailcast/internal/logging"
)

// AuthConfig holds configuration for the API key middleware.
type AuthConfig struct {
	// KeyHash is the bcrypt hash of the API key (from API_KEY_HASH).
	// Empty disables authentication entirely.
	KeyHash string
	// SkipPaths are served without authentication.
	SkipPaths []string
}

// DefaultAuthConfig returns the default auth configuration with the
// health and metrics endpoints exempt.
func DefaultAuthConfig(keyHash string) AuthConfig {
	return AuthConfig{
		KeyHash:   keyHash,
		SkipPaths: []string{"/health", "/healthz", "/livez", "/readyz", "/metrics", "/version"},
	}
}

// Auth returns middleware that checks the Authorization bearer token
// against the configured bcrypt hash. bcrypt comparison is slow on
// purpose, so the first accepted key is cached and later requests only
// pay a constant-time compare.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	if config.KeyHash == "" {
		logging.Warn("API_KEY_HASH not set; API is unauthenticated")
	}

	var mu sync.RWMutex
	var acceptedKey string

	checkKey := func(key string) bool {
		mu.RLock()
		cached := acceptedKey
		mu.RUnlock()
		if cached != "" && subtle.ConstantTimeCompare([]byte(cached), []byte(key)) == 1 {
			return true
		}

		if bcrypt.CompareHashAndPassword([]byte(config.KeyHash), []byte(key)) != nil {
			return false
		}

		mu.Lock()
		acceptedKey = key
		mu.Unlock()
		return true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.KeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			key, ok := bearerToken(r)
			if !ok || !checkKey(key) {
				logging.Warn("Rejected request to %s from %s: bad API key", r.URL.Path, getClientIP(r))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}
