// Package echo implements the echo responder: an HTTP handler that describes
// every request it receives back to the caller.
//
// Each request is handled on the goroutine net/http assigns to its
// connection. A Responder holds only values fixed at construction (port,
// variant, clock), so concurrent requests share nothing mutable.
package echo

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Variant selects the GET response format.
type Variant string

const (
	// VariantJSON answers GET with an indented JSON description of the request.
	VariantJSON Variant = "json"
	// VariantText answers GET with a single line of text naming the path.
	VariantText Variant = "text"
)

// HeaderBackendPort carries the listening port on JSON GET responses.
const HeaderBackendPort = "X-Backend-Port"

// textGreeting prefixes the text variant's GET body.
const textGreeting = "Hello from Python! You requested: "

// Option configures a Responder.
type Option func(*Responder)

// WithClock replaces the time source used for the "time" field.
func WithClock(now func() time.Time) Option {
	return func(rs *Responder) {
		rs.now = now
	}
}

// Responder answers GET and POST requests with a description of the request.
type Responder struct {
	port    int
	variant Variant
	now     func() time.Time
}

// NewResponder creates a Responder for a listener bound to port.
// An unknown variant falls back to VariantJSON.
func NewResponder(port int, variant Variant, opts ...Option) *Responder {
	if variant != VariantText {
		variant = VariantJSON
	}

	// Wall time anchored at construction plus monotonic elapsed time never
	// goes backwards, even if the system clock is stepped.
	epoch := time.Now()
	rs := &Responder{
		port:    port,
		variant: variant,
		now: func() time.Time {
			return epoch.Add(time.Since(epoch))
		},
	}

	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Port returns the listening port the responder reports.
func (rs *Responder) Port() int {
	return rs.port
}

// Variant returns the configured GET response format.
func (rs *Responder) Variant() Variant {
	return rs.variant
}

// ServeHTTP dispatches on method. Anything other than GET and POST gets 405.
func (rs *Responder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rs.HandleGet(w, r)
	case http.MethodPost:
		rs.HandlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// Snapshot captures the request line and headers. BodyBytes is left at zero.
func (rs *Responder) Snapshot(r *http.Request) Snapshot {
	return Snapshot{
		Method:     r.Method,
		Path:       requestPath(r),
		Headers:    flattenHeaders(r),
		ReceivedAt: rs.now(),
		Port:       rs.port,
	}
}

// HandleGet writes the GET response for the configured variant.
func (rs *Responder) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap := rs.Snapshot(r)

	if rs.variant == VariantText {
		write(w, "text/html", []byte(textGreeting+snap.Path))
		return
	}

	body, err := encodeIndented(getPayload{
		BackendPort: snap.Port,
		Path:        snap.Path,
		Method:      snap.Method,
		Time:        snap.Timestamp(),
		Headers:     snap.Headers,
	})
	if err != nil {
		log.Printf("[backend:%d] failed to encode GET response: %v", rs.port, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set(HeaderBackendPort, strconv.Itoa(rs.port))
	write(w, "application/json", body)
}

// HandlePost reads exactly Content-Length bytes and reports how many arrived.
// The body itself is never echoed.
func (rs *Responder) HandlePost(w http.ResponseWriter, r *http.Request) {
	snap := rs.Snapshot(r)

	n, err := contentLength(r)
	if err == nil {
		snap.BodyBytes, err = readBody(r, n)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrMalformedRequest) {
			status = http.StatusBadRequest
		}
		log.Printf("[backend:%d] %s %s: %v", rs.port, snap.Method, snap.Path, err)
		http.Error(w, err.Error(), status)
		return
	}

	body, err := encodeSpaced(postPayload{
		BackendPort: snap.Port,
		Path:        snap.Path,
		Method:      snap.Method,
		BodyBytes:   snap.BodyBytes,
	})
	if err != nil {
		log.Printf("[backend:%d] failed to encode POST response: %v", rs.port, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	write(w, "application/json", body)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
