package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is read from requests and set on every response.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is a private type for context keys to avoid collisions.
type requestIDKey struct{}

// RequestID returns a Middleware that assigns a unique ID to every request.
// The ID is:
//   - Set as the X-Request-ID response header (for the client)
//   - Stored in the request context (for the logging and capture middleware)
//   - Taken from the client's X-Request-ID when present, so a proxy under
//     test can be checked for forwarding it
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(HeaderRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), requestID)))
		})
	}
}

// ContextWithRequestID returns a copy of ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if no request ID is set.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
