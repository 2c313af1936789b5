package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evan-idocoding/mexec/rt/managed"
)

type futureState int

const (
	futurePending futureState = iota
	futureRunning
	futureDone
)

// Future is the pending-result handle of one execution instance.
//
// It implements managed.Future. It is safe for concurrent use.
type Future struct {
	id         string
	work       managed.Work
	listener   managed.Listener
	name       string
	contextual bool
	scheduled  time.Time

	submitted sync.Once

	cancelCh chan struct{} // closed by the first successful Cancel
	done     chan struct{} // closed when the outcome is known
	finished chan struct{} // closed by the runner after the terminal callback

	mu        sync.Mutex
	state     futureState
	cancelled bool
	runCtx    context.Context
	cancelRun context.CancelFunc
	runStart  time.Time
	runEnd    time.Time
	result    any
	err       error
}

var _ managed.Future = (*Future)(nil)

func newFuture(w managed.Work, props managed.Properties, listener managed.Listener, scheduled time.Time) *Future {
	name := props.Identity()
	if name == "" {
		name = w.IdentityDescription("")
	}
	return &Future{
		id:         uuid.NewString(),
		work:       w,
		listener:   listener,
		name:       name,
		contextual: props.ContextualCallbacks(),
		scheduled:  scheduled,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
}

// ID returns the execution instance id (a random UUID).
func (f *Future) ID() string { return f.id }

// Task returns the work this instance runs.
func (f *Future) Task() managed.Task { return f.work }

// Scheduled returns the time the instance was scheduled for. Zero for one-shot submissions.
func (f *Future) Scheduled() time.Time { return f.scheduled }

// Done is closed once the outcome is known.
func (f *Future) Done() <-chan struct{} { return f.done }

// Cancel requests cancellation and reports whether this call cancelled the instance.
//
// A pending instance resolves with managed.ErrCancelled immediately and never starts.
// A running instance has its context cancelled; it resolves with managed.ErrCancelled once
// the work returns. Cancel is a no-op after the outcome is known.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	if f.cancelled || f.state == futureDone {
		f.mu.Unlock()
		return false
	}
	f.cancelled = true
	close(f.cancelCh)
	if f.state == futurePending {
		f.resolveLocked(nil, managed.ErrCancelled)
		f.mu.Unlock()
		return true
	}
	cancel := f.cancelRun
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// Cancelled reports whether Cancel succeeded.
func (f *Future) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Get waits for the outcome. The result is nil for runnables.
//
// If ctx is nil, it is treated as context.Background().
func (f *Future) Get(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// Context returns the context the work runs with, when the task asked for contextual
// callbacks (managed.ContextualCallbackHint). Otherwise, and before the run starts, it
// returns context.Background().
func (f *Future) Context() context.Context {
	if !f.contextual {
		return context.Background()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runCtx == nil {
		return context.Background()
	}
	return f.runCtx
}

// Result waits for f and returns its result as a T.
func Result[T any](ctx context.Context, f *Future) (T, error) {
	var zero T
	if f == nil {
		return zero, managed.ErrInvalidArgument
	}
	v, err := f.Get(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T", ErrResultType, v)
	}
	return t, nil
}

// start moves a pending instance to running. It fails if the instance was cancelled.
func (f *Future) start(ctx context.Context, cancel context.CancelFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != futurePending {
		return false
	}
	f.state = futureRunning
	f.runCtx = ctx
	f.cancelRun = cancel
	f.runStart = time.Now()
	return true
}

// finish records the run outcome and returns the effective error.
func (f *Future) finish(result any, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelled {
		result, err = nil, managed.ErrCancelled
	}
	f.runEnd = time.Now()
	f.resolveLocked(result, err)
	return err
}

// resolve settles a pending instance that never ran. It reports false if the outcome was
// already known (typically cancelled).
func (f *Future) resolve(result any, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == futureDone {
		return false
	}
	f.resolveLocked(result, err)
	return true
}

func (f *Future) resolveLocked(result any, err error) {
	f.state = futureDone
	f.result = result
	f.err = err
	close(f.done)
}

func (f *Future) outcome() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// lastExecution builds the history record once the instance is done.
func (f *Future) lastExecution(identity string) *managed.LastExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &managed.LastExecution{
		IdentityName:   identity,
		ScheduledStart: f.scheduled,
		RunStart:       f.runStart,
		RunEnd:         f.runEnd,
		Outcome:        outcomeOf(f.err),
		Result:         f.result,
		Err:            f.err,
	}
}

func outcomeOf(err error) managed.Outcome {
	switch {
	case err == nil:
		return managed.OutcomeSucceeded
	case errors.Is(err, managed.ErrSkipped):
		return managed.OutcomeSkipped
	case errors.Is(err, managed.ErrCancelled):
		return managed.OutcomeCancelled
	case errors.Is(err, managed.ErrAborted), errors.Is(err, managed.ErrRejected):
		return managed.OutcomeAborted
	default:
		return managed.OutcomeFailed
	}
}
