package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recover returns a Middleware that turns a panic in one request into a
// logged 500, leaving the listener and other requests untouched.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Printf("[recover] %s %s: panic: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
