package middleware

import (
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Redactor decides which header values must not reach a log record.
// Header names are compared case-insensitively.
type Redactor struct {
	sensitive map[string]struct{}
}

// NewRedactor builds a Redactor from DefaultSensitiveHeaders plus extra.
func NewRedactor(extra ...string) *Redactor {
	r := &Redactor{sensitive: make(map[string]struct{}, len(DefaultSensitiveHeaders)+len(extra))}
	for _, name := range DefaultSensitiveHeaders {
		r.sensitive[name] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			r.sensitive[strings.ToLower(name)] = struct{}{}
		}
	}
	return r
}

// IsSensitive reports whether the named header is redacted.
func (r *Redactor) IsSensitive(name string) bool {
	_, ok := r.sensitive[strings.ToLower(name)]
	return ok
}

// Headers returns a copy of h keyed by lowercase name with sensitive values
// replaced. Repeated values are joined with ", ".
func (r *Redactor) Headers(h http.Header) HeaderMap {
	out := make(HeaderMap, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if r.IsSensitive(key) {
			out[key] = RedactedValue
			continue
		}
		joined := strings.Join(values, ", ")
		if prev, ok := out[key]; ok {
			joined = prev + ", " + joined
		}
		out[key] = joined
	}
	return out
}

// HeaderMap is a redacted header snapshot.
type HeaderMap map[string]string

// MarshalLogObject encodes the headers in sorted key order.
func (m HeaderMap) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		enc.AddString(k, m[k])
	}
	return nil
}
