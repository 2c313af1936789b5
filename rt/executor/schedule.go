package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/safego"
)

// Schedule is a recurring registration: one logical timeline of execution instances driven
// by a Trigger. Instances never overlap.
//
// It is safe for concurrent use.
type Schedule struct {
	e        *Executor
	work     managed.Work
	trigger  managed.Trigger
	props    managed.Properties
	listener managed.Listener

	name       string
	registered time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	mu        sync.Mutex
	state     ScheduleState
	stopErr   error
	current   *Future
	next      time.Time
	last      *managed.LastExecution
	err       error
	runs      uint64
	successes uint64
	failures  uint64
	skips     uint64
	cancels   uint64
}

func newSchedule(e *Executor, w managed.Work, t managed.Trigger, props managed.Properties, name string) *Schedule {
	return &Schedule{
		e:          e,
		work:       w,
		trigger:    t,
		props:      props,
		listener:   e.listenerFor(w),
		name:       name,
		registered: time.Now(),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Name returns the schedule name (the identity name property, may be empty).
func (s *Schedule) Name() string { return s.name }

// Current returns the pending or running instance, or nil between instances and once done.
func (s *Schedule) Current() *Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Last returns a copy of the most recent execution, or nil.
func (s *Schedule) Last() *managed.LastExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// Cancel stops the schedule and reports whether this call stopped it.
//
// No further instance is created and a pending instance is aborted with
// managed.ErrCancelled. A running instance is not interrupted; use Current().Cancel for that.
func (s *Schedule) Cancel() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	return s.stop(managed.ErrCancelled)
}

func (s *Schedule) stop(reason error) bool {
	stopped := false
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopErr = reason
		s.mu.Unlock()
		close(s.stopCh)
		stopped = true
	})
	return stopped
}

// Done is closed when the schedule terminated.
func (s *Schedule) Done() <-chan struct{} { return s.done }

// Wait waits for termination.
//
// It returns nil when the trigger ended the schedule, managed.ErrCancelled after Cancel,
// ErrClosed after executor Shutdown, an error wrapping managed.ErrRejected when the pool
// refused an instance, or an *managed.AbortedError when the trigger panicked.
// If ctx is done first, ctx.Err() is returned.
func (s *Schedule) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the termination cause. It is nil while the schedule is live.
func (s *Schedule) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Status returns a point-in-time view of the schedule.
func (s *Schedule) Status() ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ScheduleStatus{
		Name:         s.name,
		State:        s.state,
		Registered:   s.registered,
		NextRun:      s.next,
		RunCount:     s.runs,
		SuccessCount: s.successes,
		FailCount:    s.failures,
		SkipCount:    s.skips,
		CancelCount:  s.cancels,
		Last:         s.last.Clone(),
	}
	if s.current != nil {
		st.CurrentID = s.current.id
	}
	if s.err != nil {
		st.Err = s.err.Error()
	}
	return st
}

func (s *Schedule) loop() {
	defer s.e.wg.Done()

	var err error
	defer func() { s.finish(err) }()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			err = s.stopReason()
			return
		default:
		}

		last := s.Last()
		next, ok, qerr := s.nextRunTime(last)
		if qerr != nil {
			err = qerr
			return
		}
		if !ok {
			return
		}

		f := newFuture(s.work, s.props, s.listener, next)
		s.place(f, next)
		s.e.submitted.Add(1)
		s.e.notifySubmitted(f)

		resetTimer(timer, next)
		select {
		case <-timer.C:
		case <-f.cancelCh:
			stopTimer(timer)
			s.e.abort(f, f.outcome())
			s.record(f)
			continue
		case <-s.stopCh:
			stopTimer(timer)
			err = s.stopReason()
			if f.resolve(nil, managed.ErrCancelled) {
				s.e.abort(f, managed.ErrCancelled)
			} else {
				s.e.abort(f, f.outcome())
			}
			return
		}

		skip, qerr := s.skipRun(last, next)
		if qerr != nil {
			err = qerr
			if f.resolve(nil, qerr) {
				s.e.abort(f, qerr)
			} else {
				s.e.abort(f, f.outcome())
			}
			return
		}
		if skip {
			if f.resolve(nil, managed.ErrSkipped) {
				s.e.abort(f, managed.ErrSkipped)
			} else {
				s.e.abort(f, f.outcome())
			}
			s.record(f)
			continue
		}

		s.setState(ScheduleRunning)
		if derr := s.e.dispatch(func() { s.e.runInstance(f) }, s.props.IsLongRunning()); derr != nil {
			err = rejected(derr)
			if f.resolve(nil, managed.Abort(err)) {
				s.e.abort(f, managed.Abort(err))
			} else {
				s.e.abort(f, f.outcome())
			}
			s.e.logger().Warn("executor: schedule instance rejected",
				zap.String("schedule", s.name),
				zap.String("execution_id", f.id),
				zap.Error(derr),
			)
			return
		}
		<-f.finished
		s.record(f)
	}
}

// nextRunTime queries the trigger with a private copy of last.
func (s *Schedule) nextRunTime(last *managed.LastExecution) (next time.Time, ok bool, err error) {
	err = safego.Call(context.Background(), func(context.Context) error {
		next, ok = s.trigger.NextRunTime(last.Clone(), s.registered)
		return nil
	}, s.safegoOptions("trigger.next")...)
	if err != nil {
		return time.Time{}, false, managed.Abort(err)
	}
	return next, ok, nil
}

func (s *Schedule) skipRun(last *managed.LastExecution, scheduled time.Time) (skip bool, err error) {
	err = safego.Call(context.Background(), func(context.Context) error {
		skip = s.trigger.SkipRun(last.Clone(), scheduled)
		return nil
	}, s.safegoOptions("trigger.skip")...)
	if err != nil {
		return false, managed.Abort(err)
	}
	return skip, nil
}

func (s *Schedule) safegoOptions(stage string) []safego.Option {
	return []safego.Option{
		safego.WithName(s.name),
		safego.WithTag("stage", stage),
		safego.WithPanicHandler(s.e.cfg.onPanic),
		safego.WithLogger(s.e.cfg.logger),
	}
}

func (s *Schedule) place(f *Future, next time.Time) {
	s.mu.Lock()
	s.current = f
	s.next = next
	s.state = ScheduleWaiting
	s.mu.Unlock()
}

func (s *Schedule) setState(st ScheduleState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// record stores the execution history of a finished instance.
func (s *Schedule) record(f *Future) {
	l := f.lastExecution(s.name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = l
	s.current = nil
	s.next = time.Time{}
	if l.Started() {
		s.runs++
	}
	switch l.Outcome {
	case managed.OutcomeSucceeded:
		s.successes++
	case managed.OutcomeSkipped:
		s.skips++
	case managed.OutcomeCancelled:
		s.cancels++
	default:
		s.failures++
	}
}

func (s *Schedule) stopReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopErr
}

func (s *Schedule) finish(err error) {
	s.mu.Lock()
	s.state = ScheduleDone
	s.current = nil
	s.next = time.Time{}
	s.err = err
	s.mu.Unlock()

	// Stop external Cancel calls from reporting success.
	s.stop(nil)
	s.e.forget(s)
	close(s.done)

	if err != nil && !errors.Is(err, managed.ErrCancelled) && !errors.Is(err, ErrClosed) {
		s.e.logger().Warn("executor: schedule terminated",
			zap.String("schedule", s.name),
			zap.Error(err),
		)
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, next time.Time) {
	d := time.Until(next)
	if d < 0 {
		d = 0
	}
	stopTimer(t)
	t.Reset(d)
}
