package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader is the header used for request id propagation.
const DefaultRequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID returns a middleware that ensures each request has a request id.
//
// A single valid incoming X-Request-ID value is kept; otherwise a UUID is generated. Valid ids
// are at most 128 bytes of [A-Za-z0-9._-]. The id is stored in the request context and echoed
// in the response header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			// Multiple values are ambiguous; treat them as absent.
			if vs := r.Header.Values(DefaultRequestIDHeader); len(vs) == 1 && validRequestID(vs[0]) {
				id = vs[0]
			}
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(DefaultRequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

type requestIDKey struct{}

// RequestIDFromContext extracts the request id from ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(requestIDKey{}).(string)
	return v, ok && v != ""
}

// RequestIDFromRequest extracts the request id from r.Context().
func RequestIDFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	return RequestIDFromContext(r.Context())
}

// WithRequestID returns a derived context with id stored as the request id.
// If id is empty, it returns ctx unchanged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'a' && b <= 'z':
		case b >= 'A' && b <= 'Z':
		case b >= '0' && b <= '9':
		case b == '.' || b == '_' || b == '-':
		default:
			return false
		}
	}
	return true
}
