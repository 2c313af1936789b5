package managed

import (
	"fmt"
	"time"
)

// Trigger decides when a recurring task runs next and whether a due run is skipped.
//
// A trigger is queried from a single goroutine per registration. The same instance shared by
// several registrations may be called concurrently; that is the trigger's own concern.
type Trigger interface {
	// NextRunTime returns the next run time. last is nil before the first run.
	// taskScheduledTime is the time the task was registered and never changes.
	// Returning ok=false ends the schedule.
	NextRunTime(last *LastExecution, taskScheduledTime time.Time) (next time.Time, ok bool)

	// SkipRun is asked when a run comes due. Returning true vetoes that run only;
	// the schedule continues with the next NextRunTime query.
	SkipRun(last *LastExecution, scheduledRunTime time.Time) bool
}

// TriggerFuncs adapts functions to Trigger. Next is required; a nil Skip never skips.
type TriggerFuncs struct {
	Next func(last *LastExecution, taskScheduledTime time.Time) (time.Time, bool)
	Skip func(last *LastExecution, scheduledRunTime time.Time) bool
}

func (t TriggerFuncs) NextRunTime(last *LastExecution, taskScheduledTime time.Time) (time.Time, bool) {
	if t.Next == nil {
		return time.Time{}, false
	}
	return t.Next(last, taskScheduledTime)
}

func (t TriggerFuncs) SkipRun(last *LastExecution, scheduledRunTime time.Time) bool {
	if t.Skip == nil {
		return false
	}
	return t.Skip(last, scheduledRunTime)
}

// Outcome classifies how an execution instance ended.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeCancelled
	OutcomeSkipped
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// LastExecution records the immediately preceding execution of a recurring task.
//
// Only the most recent record is kept by the scheduler. Triggers receive a private copy.
type LastExecution struct {
	// IdentityName is the task's identity (IdentityName property or identity description).
	IdentityName string

	ScheduledStart time.Time
	// RunStart and RunEnd are zero when the run never started (skipped or aborted before start).
	RunStart time.Time
	RunEnd   time.Time

	Outcome Outcome
	Result  any
	Err     error
}

// Skipped reports whether the run was vetoed by the trigger.
func (l *LastExecution) Skipped() bool { return l != nil && l.Outcome == OutcomeSkipped }

// Succeeded reports whether the run completed without error.
func (l *LastExecution) Succeeded() bool { return l != nil && l.Outcome == OutcomeSucceeded }

// Started reports whether the work actually began running.
func (l *LastExecution) Started() bool { return l != nil && !l.RunStart.IsZero() }

// Latency is the delay between the scheduled and the actual start. Zero if not started.
func (l *LastExecution) Latency() time.Duration {
	if !l.Started() {
		return 0
	}
	return l.RunStart.Sub(l.ScheduledStart)
}

// Duration is the run time. Zero if not started.
func (l *LastExecution) Duration() time.Duration {
	if !l.Started() || l.RunEnd.IsZero() {
		return 0
	}
	return l.RunEnd.Sub(l.RunStart)
}

// Clone returns a copy (nil stays nil).
func (l *LastExecution) Clone() *LastExecution {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
