package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth holds valid API keys and the JWT signing secret.
type Auth struct {
	apiKeys   map[string]bool
	jwtSecret []byte
}

// NewAuth creates an Auth middleware with the given API keys and JWT secret.
func NewAuth(apiKeys []string, jwtSecret string) *Auth {
	keys := make(map[string]bool)
	for _, k := range apiKeys {
		keys[k] = true
	}
	return &Auth{
		apiKeys:   keys,
		jwtSecret: []byte(jwtSecret),
	}
}

// Enabled reports whether any credential is configured.
func (a *Auth) Enabled() bool {
	return len(a.apiKeys) > 0 || len(a.jwtSecret) > 0
}

// Middleware returns the auth Middleware.
// Checks X-API-Key header first, then falls back to Authorization: Bearer <JWT>.
// If neither is valid, returns 401 Unauthorized. With no credentials
// configured every request passes.
func (a *Auth) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" {
				if a.apiKeys[key] {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Invalid API Key", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization Header", http.StatusUnauthorized)
				return
			}

			if len(a.jwtSecret) == 0 {
				http.Error(w, "Invalid Token", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return a.jwtSecret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

			if err != nil || !token.Valid {
				http.Error(w, "Invalid Token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
