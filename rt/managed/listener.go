package managed

import "context"

// Future is a pending-result handle for one execution instance of a task.
type Future interface {
	// ID returns the execution instance identifier.
	ID() string
	// Done is closed once the instance reached a terminal state.
	Done() <-chan struct{}
	// Cancel requests cancellation. It reports whether this call moved the instance
	// to the cancelled state. Cancelling a running instance is cooperative.
	Cancel() bool
	// Cancelled reports whether the instance was cancelled.
	Cancelled() bool
	// Get waits for the outcome of the instance.
	Get(ctx context.Context) (any, error)
}

// Listener receives lifecycle notifications for every execution instance of a task.
//
// For one instance, calls are strictly ordered: TaskSubmitted, then TaskStarting, then
// exactly one of TaskDone or TaskAborted. TaskAborted is used when the work never started
// (cancelled before start, skipped by a trigger, executor shut down); TaskDone is used once
// the work ran, with a nil error on success.
//
// Implementations must return quickly. Panics are recovered and reported.
type Listener interface {
	TaskSubmitted(f Future, task Task)
	TaskStarting(f Future, task Task)
	TaskAborted(f Future, task Task, err error)
	TaskDone(f Future, task Task, err error)
}

// ListenerFuncs adapts optional functions to Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	OnSubmitted func(f Future, task Task)
	OnStarting  func(f Future, task Task)
	OnAborted   func(f Future, task Task, err error)
	OnDone      func(f Future, task Task, err error)
}

func (l ListenerFuncs) TaskSubmitted(f Future, task Task) {
	if l.OnSubmitted != nil {
		l.OnSubmitted(f, task)
	}
}

func (l ListenerFuncs) TaskStarting(f Future, task Task) {
	if l.OnStarting != nil {
		l.OnStarting(f, task)
	}
}

func (l ListenerFuncs) TaskAborted(f Future, task Task, err error) {
	if l.OnAborted != nil {
		l.OnAborted(f, task, err)
	}
}

func (l ListenerFuncs) TaskDone(f Future, task Task, err error) {
	if l.OnDone != nil {
		l.OnDone(f, task, err)
	}
}
