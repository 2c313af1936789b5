package ops

import (
	"net/http"

	"github.com/evan-idocoding/mexec/rt/executor"
)

// HealthResponse is the JSON body of the health handlers.
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	State string `json:"state,omitempty"`
}

// HealthzHandler returns a liveness handler.
//
// It is fast and side-effect free: it always responds 200 OK for GET/HEAD.
func HealthzHandler(opts ...Option) http.Handler {
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			panic("ops: nil request")
		}
		format := formatFromRequest(r, cfg.format)
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeHealth(w, r, format, http.StatusMethodNotAllowed, HealthResponse{Error: "method not allowed"})
			return
		}
		writeHealth(w, r, format, http.StatusOK, HealthResponse{OK: true})
	})
}

// ReadyzHandler returns a readiness handler bound to the executor state.
//
// It responds 200 while the executor accepts work and 503 once Shutdown began.
// GET/HEAD only; other methods return 405.
func ReadyzHandler(e *executor.Executor, opts ...Option) http.Handler {
	if e == nil {
		panic("ops: nil executor.Executor")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			panic("ops: nil request")
		}
		format := formatFromRequest(r, cfg.format)
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeHealth(w, r, format, http.StatusMethodNotAllowed, HealthResponse{Error: "method not allowed"})
			return
		}
		st := e.State()
		if st != executor.StateRunning {
			writeHealth(w, r, format, http.StatusServiceUnavailable, HealthResponse{
				Error: "executor " + st.String(),
				State: st.String(),
			})
			return
		}
		writeHealth(w, r, format, http.StatusOK, HealthResponse{OK: true, State: st.String()})
	})
}

func writeHealth(w http.ResponseWriter, r *http.Request, f Format, code int, resp HealthResponse) {
	writeResponse(w, r, f, code, resp, resp.OK, resp.Error, func() string { return "ok\n" })
}
