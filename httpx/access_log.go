package httpx

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog returns a middleware that logs one entry per request.
//
// 5xx responses are logged at Warn, everything else at Debug. A nil logger means zap.L()
// at request time.
func AccessLog(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			l := logger
			if l == nil {
				l = zap.L()
			}
			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			lvl := zapcore.DebugLevel
			if status >= http.StatusInternalServerError {
				lvl = zapcore.WarnLevel
			}
			ce := l.Check(lvl, "httpx: request")
			if ce == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int64("bytes", sw.written),
				zap.Duration("duration", time.Since(start)),
			}
			if id, ok := RequestIDFromRequest(r); ok {
				fields = append(fields, zap.String("request_id", id))
			}
			ce.Write(fields...)
		})
	}
}
