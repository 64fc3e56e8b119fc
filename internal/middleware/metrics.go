package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request collectors for one server.
// Path is not a label: the echo listener accepts any path.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bodyBytes       prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// requestsTotal counts requests by method and status code.
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testbackend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		// requestDuration tracks request latency distribution.
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "testbackend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		bodyBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "testbackend_http_request_body_bytes_total",
				Help: "Announced request body bytes received",
			},
		),
	}
}

// Middleware returns a Middleware that records the collectors per request.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			m.requestsTotal.WithLabelValues(r.Method, status).Inc()
			m.requestDuration.WithLabelValues(r.Method).Observe(duration)
			if r.ContentLength > 0 {
				m.bodyBytes.Add(float64(r.ContentLength))
			}
		})
	}
}
