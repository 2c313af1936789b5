package managed

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned synchronously when a required input is missing or malformed.
	ErrInvalidArgument = errors.New("managed: invalid argument")

	// ErrNilTask is returned when the unit of work is nil.
	ErrNilTask = fmt.Errorf("%w: task cannot be nil", ErrInvalidArgument)
	// ErrNilTrigger is returned when a recurring registration has no trigger.
	ErrNilTrigger = fmt.Errorf("%w: trigger cannot be nil", ErrInvalidArgument)
	// ErrReservedKey is returned when a property key uses the reserved prefix but is not a reserved key.
	ErrReservedKey = fmt.Errorf("%w: unknown key in reserved namespace", ErrInvalidArgument)

	// ErrRejected indicates the worker pool refused a submission (capacity, shutdown).
	// It is surfaced to the caller immediately and never retried.
	ErrRejected = errors.New("managed: submission rejected")

	// ErrCancelled indicates the caller cancelled a pending-result handle.
	ErrCancelled = errors.New("managed: cancelled")

	// ErrSkipped indicates a trigger vetoed a scheduled run. It is an outcome, not a failure.
	ErrSkipped = errors.New("managed: run skipped")

	// ErrAborted indicates the task failed to run for a reason other than cancellation.
	// Use errors.As with *AbortedError to reach the cause.
	ErrAborted = errors.New("managed: aborted")
)

// AbortedError wraps the reason a task could not run (or died while running).
type AbortedError struct {
	Cause error
}

func (e *AbortedError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrAborted.Error()
	}
	return ErrAborted.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the cause.
func (e *AbortedError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrAborted) true.
func (e *AbortedError) Is(target error) bool { return target == ErrAborted }

// Abort wraps cause into an *AbortedError. It returns nil for a nil cause.
func Abort(cause error) error {
	if cause == nil {
		return nil
	}
	var ae *AbortedError
	if errors.As(cause, &ae) {
		return cause
	}
	return &AbortedError{Cause: cause}
}
