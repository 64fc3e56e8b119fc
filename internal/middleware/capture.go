package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tanmay/testbackend/internal/dashboard"
)

// responseCapture wraps http.ResponseWriter to capture the status code,
// byte size, and still support Hijacker/Flusher interfaces if needed.
type responseCapture struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

// WriteHeader intercepts the status code before passing it through.
func (rw *responseCapture) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write intercepts the byte write to track response size.
func (rw *responseCapture) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher
func (rw *responseCapture) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker
func (rw *responseCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("http.Hijacker interface is not supported")
}

// Capture returns a Middleware that records every exchange in the dashboard
// LogStore. The record is stored before the handler chain returns, so a
// client that has read the response can already find it on the admin API.
func Capture(store *dashboard.LogStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Headers are copied up front; handlers may consume the request.
			headers := make(map[string]string, len(r.Header)+1)
			for name, values := range r.Header {
				headers[name] = strings.Join(values, ", ")
			}
			if r.Host != "" {
				headers["Host"] = r.Host
			}

			wrapped := &responseCapture{ResponseWriter: w, statusCode: 0}

			next.ServeHTTP(wrapped, r)

			// If no status was explicitly set during the request, default to 200
			if wrapped.statusCode == 0 {
				wrapped.statusCode = http.StatusOK
			}

			clientIP, _, _ := net.SplitHostPort(r.RemoteAddr)
			if clientIP == "" {
				clientIP = r.RemoteAddr
			}

			path := r.RequestURI
			if path == "" {
				path = r.URL.RequestURI()
			}

			store.Add(dashboard.RequestLog{
				ID:        GetRequestID(r.Context()),
				Timestamp: start.UTC(),
				Method:    r.Method,
				Path:      path,
				Status:    wrapped.statusCode,
				Latency:   time.Since(start),
				ClientIP:  clientIP,
				BytesIn:   r.ContentLength,
				BytesOut:  wrapped.bytesWritten,
				Headers:   headers,
			})
		})
	}
}
