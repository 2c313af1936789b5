package client

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/evan-idocoding/mexec/httpx"
)

// Middleware wraps an http.RoundTripper. The returned RoundTripper must be safe for
// concurrent use.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain returns mws[0](mws[1](...(base))). A nil base means a clone of http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = cloneDefaultTransport()
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}
	return base
}

// SetHeader sets key to value on every request. The caller's request is not mutated.
// An empty key yields a no-op middleware.
func SetHeader(key, value string) Middleware {
	if key == "" {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r2 := r.Clone(r.Context())
			r2.Header.Set(key, value)
			return next.RoundTrip(r2)
		})
	}
}

// Token sends token in httpx.DefaultTokenHeader. An empty token sends nothing.
func Token(token string) Middleware {
	if token == "" {
		return nil
	}
	return SetHeader(httpx.DefaultTokenHeader, token)
}

// RequestID sets httpx.DefaultRequestIDHeader on requests that do not carry one. The id
// comes from the request context (see httpx.WithRequestID) or is a new UUID.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(httpx.DefaultRequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			id, ok := httpx.RequestIDFromContext(r.Context())
			if !ok {
				id = uuid.NewString()
			}
			r2 := r.Clone(r.Context())
			r2.Header.Set(httpx.DefaultRequestIDHeader, id)
			return next.RoundTrip(r2)
		})
	}
}
