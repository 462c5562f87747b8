package wire

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the outcome carried by every response.
type Status string

const (
	StatusOkay   Status = "OKAY"
	StatusError  Status = "ERROR"
	StatusDenied Status = "DENIED"
)

// Well-known response keys.
const (
	KeyStatus  = "status"
	KeyID      = "id"
	KeyError   = "error"
	KeyDetail  = "detail"
	KeySession = "session"
)

// Response is a structured device response. The "status" key is
// authoritative; every other key is command-specific payload.
type Response map[string]any

// NewResponse builds a response with the given status and payload pairs.
func NewResponse(status Status, kv ...any) Response {
	r := Response{KeyStatus: string(status)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		r[key] = kv[i+1]
	}
	return r
}

// OK builds an OKAY response.
func OK(kv ...any) Response {
	return NewResponse(StatusOkay, kv...)
}

// Errorf builds an ERROR response with a formatted "error" field.
func Errorf(format string, args ...any) Response {
	return NewResponse(StatusError, KeyError, fmt.Sprintf(format, args...))
}

// Status returns the response status, or "" when absent.
func (r Response) Status() Status {
	s, _ := r[KeyStatus].(string)
	return Status(s)
}

// OK reports whether the status is OKAY.
func (r Response) OK() bool {
	return r.Status() == StatusOkay
}

// Get returns the raw value stored under key.
func (r Response) Get(key string) any {
	return r[key]
}

// String returns the value under key if it is a string.
func (r Response) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Uint returns an unsigned integer field; CBOR decodes positive integers as uint64.
func (r Response) Uint(key string) (uint64, bool) {
	switch v := r[key].(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case uint32:
		return uint64(v), true
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

// ErrorMessage returns the "error" field, if any.
func (r Response) ErrorMessage() string {
	return r.String(KeyError)
}

// Keys returns the payload keys in sorted order, status first.
func (r Response) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != KeyStatus {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := r[KeyStatus]; ok {
		keys = append([]string{KeyStatus}, keys...)
	}
	return keys
}

// Summary renders the response as "status=OKAY key=value ...".
func (r Response) Summary() string {
	var b strings.Builder
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, r[k])
	}
	return b.String()
}

// EncodeResponse encodes a response.
func EncodeResponse(r Response) ([]byte, error) {
	if _, ok := r[KeyStatus].(string); !ok {
		return nil, fmt.Errorf("invalid response: missing status")
	}
	return Marshal(map[string]any(r))
}

// DecodeResponse decodes a response frame. Data that is not a CBOR map is a
// hard error; a map without a status is turned into an ERROR response so
// callers can keep branching on Status.
func DecodeResponse(data []byte) (Response, error) {
	var m map[string]any
	if err := Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: response is not a map", ErrMalformed)
	}
	r := Response(m)
	if _, ok := r[KeyStatus].(string); !ok {
		r[KeyStatus] = string(StatusError)
		if _, has := r[KeyError]; !has {
			r[KeyError] = "response missing status"
		}
	}
	return r, nil
}
