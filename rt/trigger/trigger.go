package trigger

import (
	"fmt"
	"time"

	"github.com/evan-idocoding/mexec/rt/managed"
)

// now is replaced in tests.
var now = time.Now

type config struct {
	startImmediately bool
}

// Option configures Every and FixedDelay.
type Option func(*config)

// WithStartImmediately makes the first run due at registration time instead of one interval later.
func WithStartImmediately(v bool) Option {
	return func(c *config) { c.startImmediately = v }
}

func applyOptions(opts []Option) config {
	var c config
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

type once struct {
	at    time.Time
	delay time.Duration
}

// Once runs the task a single time at at.
func Once(at time.Time) managed.Trigger {
	return once{at: at}
}

// After runs the task a single time, d after registration.
func After(d time.Duration) managed.Trigger {
	if d < 0 {
		panic(fmt.Sprintf("trigger: After(%s) is invalid (must be >= 0)", d))
	}
	return once{delay: d}
}

func (t once) NextRunTime(last *managed.LastExecution, taskScheduledTime time.Time) (time.Time, bool) {
	if last != nil {
		return time.Time{}, false
	}
	if t.at.IsZero() {
		return taskScheduledTime.Add(t.delay), true
	}
	return t.at, true
}

func (once) SkipRun(*managed.LastExecution, time.Time) bool { return false }

type every struct {
	interval time.Duration
	cfg      config
}

// Every schedules runs at a fixed rate aligned to the registration time.
//
// Ticks are taskScheduledTime + k*interval. It never catches up: after a run that overran
// one or more ticks, the next run is the first tick strictly after the run ended.
//
// The interval must be > 0; otherwise Every panics (configuration error).
func Every(interval time.Duration, opts ...Option) managed.Trigger {
	if interval <= 0 {
		panic(fmt.Sprintf("trigger: Every interval=%s is invalid (must be > 0)", interval))
	}
	return every{interval: interval, cfg: applyOptions(opts)}
}

func (t every) NextRunTime(last *managed.LastExecution, base time.Time) (time.Time, bool) {
	if last == nil {
		if t.cfg.startImmediately {
			return base, true
		}
		return base.Add(t.interval), true
	}
	ref := last.ScheduledStart
	if last.RunEnd.After(ref) {
		ref = last.RunEnd
	}
	return nextTickAfter(base, t.interval, ref), true
}

func (every) SkipRun(*managed.LastExecution, time.Time) bool { return false }

func nextTickAfter(base time.Time, interval time.Duration, ref time.Time) time.Time {
	if ref.Before(base) {
		return base.Add(interval)
	}
	d := ref.Sub(base)
	k := int64(d/interval) + 1 // strictly after ref
	return base.Add(time.Duration(k) * interval)
}

type fixedDelay struct {
	interval time.Duration
	cfg      config
}

// FixedDelay schedules the next run interval after the previous run ended. A run that
// never started (skipped, cancelled before start) counts from its scheduled time.
//
// The interval must be > 0; otherwise FixedDelay panics (configuration error).
func FixedDelay(interval time.Duration, opts ...Option) managed.Trigger {
	if interval <= 0 {
		panic(fmt.Sprintf("trigger: FixedDelay interval=%s is invalid (must be > 0)", interval))
	}
	return fixedDelay{interval: interval, cfg: applyOptions(opts)}
}

func (t fixedDelay) NextRunTime(last *managed.LastExecution, base time.Time) (time.Time, bool) {
	if last == nil {
		if t.cfg.startImmediately {
			return base, true
		}
		return base.Add(t.interval), true
	}
	if !last.RunEnd.IsZero() {
		return last.RunEnd.Add(t.interval), true
	}
	return last.ScheduledStart.Add(t.interval), true
}

func (fixedDelay) SkipRun(*managed.LastExecution, time.Time) bool { return false }

type until struct {
	managed.Trigger
	deadline time.Time
}

// Until ends the schedule once t's next run time would be after deadline.
func Until(t managed.Trigger, deadline time.Time) managed.Trigger {
	mustTrigger(t, "Until")
	return until{Trigger: t, deadline: deadline}
}

func (t until) NextRunTime(last *managed.LastExecution, base time.Time) (time.Time, bool) {
	next, ok := t.Trigger.NextRunTime(last, base)
	if !ok || next.After(t.deadline) {
		return time.Time{}, false
	}
	return next, true
}

// SkipFunc decides whether a due run is skipped.
type SkipFunc func(last *managed.LastExecution, scheduledRunTime time.Time) bool

type skipIf struct {
	managed.Trigger
	pred SkipFunc
}

// SkipIf skips a due run when t skips it or pred returns true.
func SkipIf(t managed.Trigger, pred SkipFunc) managed.Trigger {
	mustTrigger(t, "SkipIf")
	if pred == nil {
		panic("trigger: SkipIf called with nil predicate")
	}
	return skipIf{Trigger: t, pred: pred}
}

func (t skipIf) SkipRun(last *managed.LastExecution, scheduled time.Time) bool {
	return t.Trigger.SkipRun(last, scheduled) || t.pred(last, scheduled)
}

// SkipLate skips a run that comes due more than tolerance after its scheduled time, for
// example after the process was suspended or the pool was saturated.
func SkipLate(t managed.Trigger, tolerance time.Duration) managed.Trigger {
	if tolerance < 0 {
		panic(fmt.Sprintf("trigger: SkipLate tolerance=%s is invalid (must be >= 0)", tolerance))
	}
	return SkipIf(t, func(_ *managed.LastExecution, scheduled time.Time) bool {
		return now().Sub(scheduled) > tolerance
	})
}

func mustTrigger(t managed.Trigger, fn string) {
	if t == nil {
		panic("trigger: " + fn + " called with nil Trigger")
	}
}
