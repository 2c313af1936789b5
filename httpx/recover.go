package httpx

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recover returns a middleware that recovers panics from downstream handlers and keeps the
// server alive.
//
// It re-panics http.ErrAbortHandler to preserve net/http semantics. If the response has not
// started, it writes 500 Internal Server Error. Panics are logged at Error level with the
// request id when RequestID runs before it. A nil logger means zap.L() at panic time.
func Recover(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrapWriter(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				l := logger
				if l == nil {
					l = zap.L()
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()),
				}
				if id, ok := RequestIDFromRequest(r); ok {
					fields = append(fields, zap.String("request_id", id))
				}
				l.Error("httpx: panic", fields...)

				if !sw.started() {
					http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
