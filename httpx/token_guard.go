package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultTokenHeader is the header carrying the access token checked by TokenGuard.
const DefaultTokenHeader = "X-Access-Token"

// TokenGuard returns a middleware that admits only requests carrying exactly one
// DefaultTokenHeader value equal to one of tokens. Denied requests get 403 and are logged at
// Warn without the token value.
//
// Blank tokens are ignored. With no token left it denies all requests (fail-closed).
func TokenGuard(logger *zap.Logger, tokens ...string) Middleware {
	set := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			set = append(set, []byte(t))
		}
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := checkToken(r.Header.Values(DefaultTokenHeader), set)
			if reason == "" {
				next.ServeHTTP(w, r)
				return
			}
			l := logger
			if l == nil {
				l = zap.L()
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("reason", reason),
			}
			if id, ok := RequestIDFromRequest(r); ok {
				fields = append(fields, zap.String("request_id", id))
			}
			l.Warn("httpx: access denied", fields...)
			w.WriteHeader(http.StatusForbidden)
		})
	}
}

func checkToken(vs []string, set [][]byte) (reason string) {
	switch {
	case len(vs) == 0:
		return "token_missing"
	case len(vs) > 1:
		return "token_ambiguous"
	}
	tok := strings.TrimSpace(vs[0])
	if tok == "" {
		return "token_empty"
	}
	ok := 0
	for _, want := range set {
		ok |= subtle.ConstantTimeCompare([]byte(tok), want)
	}
	if ok == 0 {
		return "token_invalid"
	}
	return ""
}
