package ops

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evan-idocoding/mexec/rt/executor"
)

// SchedulesSnapshotHandler returns a handler that outputs an executor snapshot: the
// executor counters, its pool statistics and every live schedule.
//
// Behavior:
//   - GET/HEAD only; other methods return 405.
//   - By default, it renders text. You can change the default with options.
//   - The response format can be overridden per request by URL query (?format=json|text).
//   - Name guards filter the schedule list; executor counters are always shown.
func SchedulesSnapshotHandler(e *executor.Executor, opts ...Option) http.Handler {
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
			writeSchedulesSnapshot(w, r, format, http.StatusMethodNotAllowed, SchedulesResponse{
				OK:    false,
				Error: "method not allowed",
			})
			return
		}

		snap := e.Snapshot()
		exec := toExecutorStatus(snap)
		writeSchedulesSnapshot(w, r, format, http.StatusOK, SchedulesResponse{
			OK:        true,
			Executor:  &exec,
			Schedules: toScheduleSnapshots(snap, cfg.guard),
		})
	})
}

// ScheduleCancelHandler returns a handler that cancels a named schedule.
//
// Input:
//   - POST only
//   - URL query: ?name=<schedule name>
//
// Output:
//   - 200 if the schedule was cancelled by this request
//   - 409 if the schedule was already stopping
//   - 400 missing name, 403 name not allowed, 404 unknown schedule
//
// Cancelling stops future runs and aborts a pending run; a run already in progress is not
// interrupted.
func ScheduleCancelHandler(e *executor.Executor, opts ...Option) http.Handler {
	if e == nil {
		panic("ops: nil executor.Executor")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			panic("ops: nil request")
		}
		format := formatFromRequest(r, cfg.format)
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			writeScheduleCancel(w, r, format, http.StatusMethodNotAllowed, ScheduleCancelResponse{
				OK:    false,
				Error: "method not allowed",
			})
			return
		}

		name, _ := getQueryRequired(r, "name")
		name = strings.TrimSpace(name)
		if name == "" {
			writeScheduleCancel(w, r, format, http.StatusBadRequest, ScheduleCancelResponse{
				OK:    false,
				Error: "missing name",
			})
			return
		}
		if cfg.guard != nil && !cfg.guard(name) {
			writeScheduleCancel(w, r, format, http.StatusForbidden, ScheduleCancelResponse{
				OK:    false,
				Error: "name not allowed",
				Name:  name,
			})
			return
		}

		s, found := e.Lookup(name)
		if !found || s == nil {
			writeScheduleCancel(w, r, format, http.StatusNotFound, ScheduleCancelResponse{
				OK:    false,
				Error: "schedule not found",
				Name:  name,
			})
			return
		}
		if !s.Cancel() {
			writeScheduleCancel(w, r, format, http.StatusConflict, ScheduleCancelResponse{
				OK:    false,
				Error: "schedule already stopping",
				Name:  name,
			})
			return
		}
		writeScheduleCancel(w, r, format, http.StatusOK, ScheduleCancelResponse{
			OK:        true,
			Name:      name,
			Cancelled: true,
		})
	})
}

// ExecutorStatus is the executor part of SchedulesResponse.
type ExecutorStatus struct {
	Name      string              `json:"name,omitempty"`
	State     string              `json:"state"`
	Submitted uint64              `json:"submitted"`
	Succeeded uint64              `json:"succeeded"`
	Failed    uint64              `json:"failed"`
	Aborted   uint64              `json:"aborted"`
	Pool      *executor.PoolStats `json:"pool,omitempty"`
}

type LastExecutionSnapshot struct {
	ScheduledStart time.Time `json:"scheduled_start"`
	RunStart       time.Time `json:"run_start,omitempty"`
	RunEnd         time.Time `json:"run_end,omitempty"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
}

// ScheduleSnapshot describes one schedule in SchedulesResponse.
type ScheduleSnapshot struct {
	// Name is the configured schedule name (may be empty).
	Name string `json:"name"`
	// DisplayName is always non-empty. Unnamed schedules are rendered as "unnamed#<index>",
	// derived from the current snapshot ordering; it is not a stable identifier.
	DisplayName string `json:"display_name"`

	State      string    `json:"state"`
	Registered time.Time `json:"registered"`
	NextRun    time.Time `json:"next_run,omitempty"`
	CurrentID  string    `json:"current_id,omitempty"`

	RunCount     uint64 `json:"run_count"`
	SuccessCount uint64 `json:"success_count"`
	FailCount    uint64 `json:"fail_count"`
	SkipCount    uint64 `json:"skip_count"`
	CancelCount  uint64 `json:"cancel_count"`

	Last *LastExecutionSnapshot `json:"last,omitempty"`
}

// SchedulesResponse is the JSON body of SchedulesSnapshotHandler.
type SchedulesResponse struct {
	OK        bool               `json:"ok"`
	Error     string             `json:"error,omitempty"`
	Executor  *ExecutorStatus    `json:"executor,omitempty"`
	Schedules []ScheduleSnapshot `json:"schedules,omitempty"`
}

// ScheduleCancelResponse is the JSON body of ScheduleCancelHandler.
type ScheduleCancelResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Name      string `json:"name,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func toExecutorStatus(s executor.Snapshot) ExecutorStatus {
	return ExecutorStatus{
		Name:      s.Name,
		State:     s.State.String(),
		Submitted: s.Submitted,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Aborted:   s.Aborted,
		Pool:      s.Pool,
	}
}

func toScheduleSnapshots(s executor.Snapshot, guard func(name string) bool) []ScheduleSnapshot {
	if len(s.Schedules) == 0 {
		return nil
	}
	out := make([]ScheduleSnapshot, 0, len(s.Schedules))
	for i, st := range s.Schedules {
		// Unnamed schedules are hidden when a name allowlist is in effect.
		if guard != nil && (st.Name == "" || !guard(st.Name)) {
			continue
		}
		display := st.Name
		if display == "" {
			display = fmt.Sprintf("unnamed#%d", i)
		}
		item := ScheduleSnapshot{
			Name:         st.Name,
			DisplayName:  display,
			State:        st.State.String(),
			Registered:   st.Registered,
			NextRun:      st.NextRun,
			CurrentID:    st.CurrentID,
			RunCount:     st.RunCount,
			SuccessCount: st.SuccessCount,
			FailCount:    st.FailCount,
			SkipCount:    st.SkipCount,
			CancelCount:  st.CancelCount,
		}
		if l := st.Last; l != nil {
			item.Last = &LastExecutionSnapshot{
				ScheduledStart: l.ScheduledStart,
				RunStart:       l.RunStart,
				RunEnd:         l.RunEnd,
				Outcome:        l.Outcome.String(),
			}
			if l.Err != nil {
				item.Last.Error = l.Err.Error()
			}
		}
		out = append(out, item)
	}
	return out
}

func writeSchedulesSnapshot(w http.ResponseWriter, r *http.Request, f Format, code int, resp SchedulesResponse) {
	writeResponse(w, r, f, code, resp, resp.OK, resp.Error, func() string {
		return renderSchedulesSnapshotText(resp.Executor, resp.Schedules)
	})
}

func writeScheduleCancel(w http.ResponseWriter, r *http.Request, f Format, code int, resp ScheduleCancelResponse) {
	writeResponse(w, r, f, code, resp, resp.OK, resp.Error, func() string {
		var lw lineWriter
		lw.line("schedule_cancel", resp.Name, "cancelled", strconv.FormatBool(resp.Cancelled))
		return lw.String()
	})
}

func renderSchedulesSnapshotText(exec *ExecutorStatus, schedules []ScheduleSnapshot) string {
	// Stable and greppable:
	//   executor\t<field>\t<value>
	//   pool\t<field>\t<value>
	//   schedule\t<display_name>\t<field>\t<value>
	var lw lineWriter
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	ts := func(t time.Time) string { return t.Format(time.RFC3339Nano) }

	if exec != nil {
		if exec.Name != "" {
			lw.line("executor", "name", exec.Name)
		}
		lw.line("executor", "state", exec.State)
		lw.line("executor", "submitted", u(exec.Submitted))
		lw.line("executor", "succeeded", u(exec.Succeeded))
		lw.line("executor", "failed", u(exec.Failed))
		lw.line("executor", "aborted", u(exec.Aborted))
		if p := exec.Pool; p != nil {
			lw.line("pool", "workers", strconv.Itoa(p.Workers))
			lw.line("pool", "queue_len", strconv.Itoa(p.QueueLen))
			lw.line("pool", "queue_cap", strconv.Itoa(p.QueueCap))
			lw.line("pool", "submitted", u(p.Submitted))
			lw.line("pool", "rejected", u(p.Rejected))
			lw.line("pool", "completed", u(p.Completed))
			lw.line("pool", "long_running", strconv.FormatInt(p.LongRunning, 10))
		}
	}

	for _, st := range schedules {
		n := st.DisplayName
		lw.line("schedule", n, "state", st.State)
		lw.line("schedule", n, "registered", ts(st.Registered))
		if !st.NextRun.IsZero() {
			lw.line("schedule", n, "next_run", ts(st.NextRun))
		}
		if st.CurrentID != "" {
			lw.line("schedule", n, "current_id", st.CurrentID)
		}
		lw.line("schedule", n, "run_count", u(st.RunCount))
		lw.line("schedule", n, "success_count", u(st.SuccessCount))
		lw.line("schedule", n, "fail_count", u(st.FailCount))
		lw.line("schedule", n, "skip_count", u(st.SkipCount))
		lw.line("schedule", n, "cancel_count", u(st.CancelCount))
		if l := st.Last; l != nil {
			lw.line("schedule", n, "last_outcome", l.Outcome)
			lw.line("schedule", n, "last_scheduled", ts(l.ScheduledStart))
			if !l.RunStart.IsZero() {
				lw.line("schedule", n, "last_started", ts(l.RunStart))
				lw.line("schedule", n, "last_duration", l.RunEnd.Sub(l.RunStart).String())
			}
			if l.Error != "" {
				lw.line("schedule", n, "last_error", l.Error)
			}
		}
	}
	return lw.String()
}
