package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
// Go's http.ResponseWriter doesn't let you read the status code after
// WriteHeader() is called, so we intercept it.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader records the status code, then delegates.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// logEntry is the structured log format for each request.
type logEntry struct {
	Timestamp   string `json:"timestamp"`
	RequestID   string `json:"request_id,omitempty"`
	BackendPort int    `json:"backend_port"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Status      int    `json:"status"`
	DurationMs  int64  `json:"duration_ms"`
	ClientIP    string `json:"client_ip"`
}

// Logging returns a Middleware that writes one line per request to out.
//
// format "json" writes a logEntry object per line. Any other format writes
// the classic access line: [backend:PORT] "GET /path HTTP/1.1" 200
func Logging(out io.Writer, port int, format string) Middleware {
	// Lines from concurrent requests must not interleave.
	var mu sync.Mutex
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Default to 200 because Go sends 200 if WriteHeader is never called explicitly.
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			mu.Lock()
			defer mu.Unlock()

			if format != "json" {
				fmt.Fprintf(out, "[backend:%d] %q %d\n", port, r.Method+" "+r.RequestURI+" "+r.Proto, wrapped.statusCode)
				return
			}

			clientIP, _, _ := net.SplitHostPort(r.RemoteAddr)
			encoder.Encode(logEntry{
				Timestamp:   start.UTC().Format(time.RFC3339),
				RequestID:   GetRequestID(r.Context()),
				BackendPort: port,
				Method:      r.Method,
				Path:        r.URL.Path,
				Status:      wrapped.statusCode,
				DurationMs:  time.Since(start).Milliseconds(),
				ClientIP:    clientIP,
			})
		})
	}
}
