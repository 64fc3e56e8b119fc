// Package middleware holds the handler wrappers the echo listener runs
// requests through: request IDs, access logging, metrics, capture for the
// dashboard, auth and panic recovery.
package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to a handler in the order they are provided.
// Chain(h, RequestID(), Logging(...)) runs RequestID first, then Logging,
// then h.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
