package middleware

import (
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// QueryParam is one key/value pair of a query string.
type QueryParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QueryParams keeps query parameters in the order they were sent,
// including repeated keys.
type QueryParams []QueryParam

// ParseQuery splits a raw query string into ordered parameters. Pairs that
// fail to unescape are kept verbatim.
func ParseQuery(rawQuery string) QueryParams {
	if rawQuery == "" {
		return QueryParams{}
	}

	params := make(QueryParams, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params = append(params, QueryParam{
			Key:   unescape(key),
			Value: unescape(value),
		})
	}
	return params
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// MarshalLogArray encodes each pair as a {key, value} object.
func (q QueryParams) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range q {
		if err := enc.AppendObject(q[i]); err != nil {
			return err
		}
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (p QueryParam) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("key", p.Key)
	enc.AddString("value", p.Value)
	return nil
}
