package daemon

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/httpx"
	"github.com/evan-idocoding/mexec/internal/config"
	"github.com/evan-idocoding/mexec/ops"
	"github.com/evan-idocoding/mexec/rt/executor"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// OpsHandler assembles the operational HTTP handler.
//
// Read-only routes are always mounted. The cancel route is mounted only when c.CancelPrefixes
// is non-empty and, like the log level route, only accepts writes carrying one of c.Tokens.
// With no tokens, writes are denied.
func OpsHandler(c config.OpsConfig, e *executor.Executor, level zap.AtomicLevel, logger *zap.Logger) http.Handler {
	if e == nil {
		panic("daemon: nil executor.Executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := httpx.TokenGuard(logger, c.Tokens...)

	mux := http.NewServeMux()
	mux.Handle(ops.PathHealthz, ops.HealthzHandler())
	mux.Handle(ops.PathReadyz, ops.ReadyzHandler(e))
	mux.Handle(ops.PathSchedules, ops.SchedulesSnapshotHandler(e))
	if prefixes := nonBlank(c.CancelPrefixes); len(prefixes) > 0 {
		mux.Handle(ops.PathScheduleCancel, httpx.Wrap(ops.ScheduleCancelHandler(e, ops.WithAllowPrefixes(prefixes...)), guard))
	}
	mux.Handle(ops.PathLogLevel, writeGuard(ops.LogLevelHandler(level), guard))

	return httpx.Wrap(mux,
		httpx.RequestID(),
		httpx.AccessLog(logger),
		httpx.Recover(logger),
	)
}

// writeGuard applies mw to POST requests only, so reads stay open.
func writeGuard(h http.Handler, mw httpx.Middleware) http.Handler {
	guarded := httpx.Wrap(h, mw)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			guarded.ServeHTTP(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
