package echo

import (
	"bytes"
	"encoding/json"
)

// getPayload is the JSON body of a GET response. Field order is part of the
// wire format.
type getPayload struct {
	BackendPort int               `json:"backend_port"`
	Path        string            `json:"path"`
	Method      string            `json:"method"`
	Time        string            `json:"time"`
	Headers     map[string]string `json:"headers"`
}

// postPayload is the JSON body of a POST response.
type postPayload struct {
	BackendPort int    `json:"backend_port"`
	Path        string `json:"path"`
	Method      string `json:"method"`
	BodyBytes   int64  `json:"body_bytes"`
}

// encodeIndented renders v with two-space indentation and no trailing newline.
func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodeSpaced renders v on one line with ", " and ": " between tokens,
// e.g. {"a": 1, "b": [1, 2]}.
func encodeSpaced(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return spaceSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// spaceSeparators adds a space after every ',' and ':' that sits outside a
// string literal. The input must be compact JSON.
func spaceSeparators(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/4)
	inString, escaped := false, false

	for _, c := range src {
		out = append(out, c)

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case ',', ':':
			out = append(out, ' ')
		}
	}

	return out
}
