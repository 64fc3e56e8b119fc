package echo

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRequest is returned when the request framing cannot be trusted:
// an unparsable Content-Length or a body shorter than announced.
var ErrMalformedRequest = errors.New("malformed request")

// timeLayout is ISO-8601 in UTC with microseconds and a literal Z.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Snapshot is the transient record of one request, built once its headers
// are read and dropped after the response is written.
type Snapshot struct {
	Method     string
	Path       string
	Headers    map[string]string
	BodyBytes  int64
	ReceivedAt time.Time
	Port       int
}

// Timestamp formats ReceivedAt the way it appears in responses.
func (s Snapshot) Timestamp() string {
	return s.ReceivedAt.UTC().Format(timeLayout)
}

// requestPath returns the request target as the client sent it, query included.
func requestPath(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// flattenHeaders collapses repeated header fields into one comma-joined value.
// Host is lifted out of the request line by net/http, so it is added back.
func flattenHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		if _, ok := headers["Host"]; !ok {
			headers["Host"] = r.Host
		}
	}
	return headers
}

// contentLength reads the announced body size. A missing header means zero.
//
// Over a real connection net/http rejects a non-numeric or negative
// Content-Length with its own 400 before any handler runs, so the error
// branch here is only reached by requests built in-process.
func contentLength(r *http.Request) (int64, error) {
	raw := r.Header.Get("Content-Length")
	if raw == "" {
		if r.ContentLength > 0 {
			return r.ContentLength, nil
		}
		return 0, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedRequest, raw)
	}
	return n, nil
}

// readBody consumes exactly n bytes of the request body and returns how many
// arrived. The content itself is discarded.
func readBody(r *http.Request, n int64) (int64, error) {
	if n == 0 || r.Body == nil {
		return 0, nil
	}

	read, err := io.CopyN(io.Discard, r.Body, n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return read, fmt.Errorf("%w: body truncated after %d of %d bytes", ErrMalformedRequest, read, n)
		}
		return read, fmt.Errorf("failed to read request body: %w", err)
	}
	return read, nil
}
