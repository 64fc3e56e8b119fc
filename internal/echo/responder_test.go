package echo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(rs *Responder, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	rs.ServeHTTP(rr, req)
	return rr
}

func TestGetJSONDescribesRequest(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Test", "yes")
	rr := serve(rs, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "9001", rr.Header().Get(HeaderBackendPort))
	assert.Equal(t, strconv.Itoa(rr.Body.Len()), rr.Header().Get("Content-Length"))

	body := rr.Body.String()
	assert.Contains(t, body, `"backend_port": 9001`)
	assert.Contains(t, body, `"path": "/health"`)
	assert.Contains(t, body, `"method": "GET"`)
	assert.True(t, strings.HasPrefix(body, "{\n  \"backend_port\": 9001,\n  \"path\""), "unexpected layout: %s", body)
	assert.False(t, strings.HasSuffix(body, "\n"), "body should not end with a newline")

	var decoded struct {
		BackendPort int               `json:"backend_port"`
		Path        string            `json:"path"`
		Method      string            `json:"method"`
		Time        string            `json:"time"`
		Headers     map[string]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	assert.Equal(t, "yes", decoded.Headers["X-Test"])
	assert.Equal(t, "example.com", decoded.Headers["Host"])
}

func TestGetJSONKeepsQueryInPath(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)
	rr := serve(rs, httptest.NewRequest(http.MethodGet, "/search?q=a&b=2", nil))

	assert.Contains(t, rr.Body.String(), `"path": "/search?q=a&b=2"`)
}

func TestNonASCIIIsWrittenAsUTF8(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	req := httptest.NewRequest(http.MethodGet, "/café", nil)
	req.Header.Set("X-Name", "zoë")
	body := serve(rs, req).Body.String()

	assert.Contains(t, body, `"path": "/café"`)
	assert.Contains(t, body, `"X-Name": "zoë"`)
	assert.NotContains(t, body, `\u00`)

	req = httptest.NewRequest(http.MethodPost, "/café", strings.NewReader("hi"))
	assert.Equal(t, `{"backend_port": 9001, "path": "/café", "method": "POST", "body_bytes": 2}`, serve(rs, req).Body.String())
}

func TestGetJSONJoinsRepeatedHeaders(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Add("X-Multi", "one")
	req.Header.Add("X-Multi", "two")
	rr := serve(rs, req)

	assert.Contains(t, rr.Body.String(), `"X-Multi": "one, two"`)
}

func TestGetJSONTimeFormat(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 30, 15, 123456000, time.FixedZone("CEST", 2*3600))
	rs := NewResponder(9001, VariantJSON, WithClock(func() time.Time { return fixed }))

	rr := serve(rs, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rr.Body.String(), `"time": "2026-10-19T06:30:15.123456Z"`)
}

func TestGetJSONTimeIsNonDecreasing(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	var previous time.Time
	for i := 0; i < 20; i++ {
		rr := serve(rs, httptest.NewRequest(http.MethodGet, "/tick", nil))

		var decoded struct {
			Time string `json:"time"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
		require.True(t, strings.HasSuffix(decoded.Time, "Z"), "time %q should end in Z", decoded.Time)

		parsed, err := time.Parse(time.RFC3339Nano, decoded.Time)
		require.NoError(t, err)
		assert.False(t, parsed.Before(previous), "time went backwards: %s before %s", parsed, previous)
		previous = parsed
	}
}

func TestGetText(t *testing.T) {
	rs := NewResponder(8899, VariantText)

	rr := serve(rs, httptest.NewRequest(http.MethodGet, "/foo?bar=1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Hello from Python! You requested: /foo?bar=1", rr.Body.String())
	assert.Equal(t, "text/html", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get(HeaderBackendPort))
}

func TestPostReportsBodySize(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	rr := serve(rs, httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("hello")))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"backend_port": 9001, "path": "/submit", "method": "POST", "body_bytes": 5}`, rr.Body.String())
	assert.Empty(t, rr.Header().Get(HeaderBackendPort))
}

func TestPostBodySizes(t *testing.T) {
	rs := NewResponder(9001, VariantText)

	for _, n := range []int{0, 1, 1024, 64 * 1024} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", n)))
			req.Header.Set("Content-Length", strconv.Itoa(n))

			rr := serve(rs, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), `"body_bytes": `+strconv.Itoa(n)+`}`)
		})
	}
}

func TestPostWithoutContentLengthReadsNothing(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	req := httptest.NewRequest(http.MethodPost, "/chunked", strings.NewReader("ignored"))
	req.ContentLength = -1

	rr := serve(rs, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"body_bytes": 0`)
}

func TestPostMalformedRequests(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		contentLength string
		wantMessage   string
	}{
		{name: "non-numeric", body: "abc", contentLength: "abc", wantMessage: "invalid Content-Length"},
		{name: "negative", body: "abc", contentLength: "-3", wantMessage: "invalid Content-Length"},
		{name: "truncated", body: "hi", contentLength: "10", wantMessage: "body truncated after 2 of 10 bytes"},
	}

	rs := NewResponder(9001, VariantJSON)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bad", strings.NewReader(tt.body))
			req.Header.Set("Content-Length", tt.contentLength)

			rr := serve(rs, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantMessage)
		})
	}

	// A bad request leaves the responder usable.
	rr := serve(rs, httptest.NewRequest(http.MethodPost, "/ok", strings.NewReader("fine")))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnsupportedMethods(t *testing.T) {
	rs := NewResponder(9001, VariantJSON)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			rr := serve(rs, httptest.NewRequest(method, "/", nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
		})
	}
}

func TestNewResponderDefaultsToJSON(t *testing.T) {
	rs := NewResponder(1234, Variant("yaml"))

	assert.Equal(t, VariantJSON, rs.Variant())
	assert.Equal(t, 1234, rs.Port())
}
