package executor

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/rt/managed"
)

// Executor runs managed work on a Pool, one-shot or driven by a Trigger.
//
// It is safe for concurrent use. An Executor is running from New until Shutdown.
type Executor struct {
	state atomic.Int32 // State

	cfg config

	pool      Pool
	ownedPool *WorkerPool

	// startMu gates instance creation: Submit and Schedule hold RLock while they check the
	// state and register with wg, Shutdown takes Lock to flip the state, so nothing new is
	// accepted once Shutdown began. No listener is called under startMu.
	startMu sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	schedules []*Schedule
	names     map[string]*Schedule

	wg       sync.WaitGroup // one-shot instances + schedule loops
	stopOnce sync.Once

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	aborted   atomic.Uint64
}

// New creates a running Executor.
func New(opts ...Option) *Executor {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	e := &Executor{
		cfg:   cfg,
		names: make(map[string]*Schedule),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	if cfg.pool != nil {
		e.pool = cfg.pool
	} else {
		e.ownedPool = NewWorkerPool(WithPoolName(cfg.name), WithPoolLogger(cfg.logger))
		e.pool = e.ownedPool
	}
	return e
}

// Name returns the configured name.
func (e *Executor) Name() string { return e.cfg.name }

// Submit runs w once.
//
// w's properties are validated first. The listener (w's own, else the default listener)
// receives TaskSubmitted once the pool accepted the instance, then TaskStarting and
// TaskDone, or TaskAborted if the instance never started.
//
// Errors:
//   - managed.ErrNilTask: w is nil.
//   - managed.ErrInvalidArgument: malformed properties (managed.ErrReservedKey included).
//   - ErrClosed: Shutdown has begun.
//   - an error wrapping managed.ErrRejected: the pool refused the instance.
//
// For ErrClosed and pool rejections the listener receives TaskAborted with the returned
// error on an already resolved instance; TaskSubmitted does not fire.
func (e *Executor) Submit(w managed.Work) (*Future, error) {
	if isNilWork(w) {
		return nil, managed.ErrNilTask
	}
	props := w.Properties()
	if err := props.Validate(); err != nil {
		return nil, err
	}

	f := newFuture(w, props, e.listenerFor(w), time.Time{})
	if err := e.accept(f, props.IsLongRunning()); err != nil {
		f.resolve(nil, err)
		close(f.finished)
		e.abort(f, err)
		return nil, err
	}
	e.submitted.Add(1)
	e.notifySubmitted(f)
	return f, nil
}

// accept hands f to the pool. startMu only covers the state check and wg.Add; the pool (and
// with an inline pool, the listener) is called after it is released.
func (e *Executor) accept(f *Future, longRunning bool) error {
	if !e.enter() {
		return ErrClosed
	}
	err := e.dispatch(func() {
		defer e.wg.Done()
		e.notifySubmitted(f)
		e.runInstance(f)
	}, longRunning)
	if err != nil {
		e.wg.Done()
		return rejected(err)
	}
	return nil
}

// enter registers one unit of work with wg unless Shutdown has begun.
func (e *Executor) enter() bool {
	e.startMu.RLock()
	defer e.startMu.RUnlock()
	if e.State() != StateRunning {
		return false
	}
	e.wg.Add(1)
	return true
}

// Execute submits r and waits for its outcome. If ctx is done first, the instance is
// cancelled and ctx.Err() is returned.
func (e *Executor) Execute(ctx context.Context, r managed.Runnable) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w, err := managed.AsWork(r)
	if err != nil {
		return err
	}
	f, err := e.Submit(w)
	if err != nil {
		return err
	}
	if _, err = f.Get(ctx); err != nil && ctx.Err() != nil {
		f.Cancel()
	}
	return err
}

// Submit wraps c with opts and runs it once on e. Use Result to read the typed value.
func Submit[T any](e *Executor, c managed.Callable[T], opts ...managed.Option) (*Future, error) {
	w, err := managed.WrapCallable(c, opts...)
	if err != nil {
		return nil, err
	}
	return e.Submit(w)
}

// Shutdown stops accepting work and waits for it to drain.
//
// Schedules are cancelled: pending instances are aborted and no new cycle starts, while
// in-flight runs finish. One-shot instances already accepted still run. If ctx is done
// before everything drained, the run contexts are cancelled (running work should return),
// instances that have not started yet are aborted with ErrClosed, and ctx.Err() is
// returned; Wait can be used to wait for the rest.
//
// Shutdown is safe to call multiple times. If ctx is nil, it is treated as
// context.Background().
func (e *Executor) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.startMu.Lock()
	switch e.State() {
	case StateRunning:
		e.state.Store(int32(StateStopping))
		e.startMu.Unlock()
		e.mu.Lock()
		schedules := append([]*Schedule(nil), e.schedules...)
		e.mu.Unlock()
		for _, s := range schedules {
			s.stop(ErrClosed)
		}
	case StateStopping:
		// A previous Shutdown timed out. Wait again with the new ctx.
		e.startMu.Unlock()
	default:
		e.startMu.Unlock()
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return e.finalize(ctx)
	case <-ctx.Done():
		e.cancel()
		go func() {
			<-done
			_ = e.finalize(context.Background())
		}()
		return ctx.Err()
	}
}

func (e *Executor) finalize(ctx context.Context) error {
	var err error
	e.stopOnce.Do(func() {
		if e.ownedPool != nil {
			err = e.ownedPool.Shutdown(ctx)
		}
		e.cancel()
		e.state.Store(int32(StateStopped))
		e.logger().Debug("executor: stopped", zap.String("name", e.cfg.name))
	})
	return err
}

// Wait waits until every accepted instance and every schedule loop has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// IsShutdown reports whether Shutdown has begun.
func (e *Executor) IsShutdown() bool {
	return e.State() != StateRunning
}

// State returns the lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Snapshot returns a point-in-time view of the executor and its live schedules.
func (e *Executor) Snapshot() Snapshot {
	e.mu.Lock()
	schedules := append([]*Schedule(nil), e.schedules...)
	e.mu.Unlock()

	out := Snapshot{
		Name:      e.cfg.name,
		State:     e.State(),
		Submitted: e.submitted.Load(),
		Succeeded: e.succeeded.Load(),
		Failed:    e.failed.Load(),
		Aborted:   e.aborted.Load(),
		Schedules: make([]ScheduleStatus, 0, len(schedules)),
	}
	if e.ownedPool != nil {
		st := e.ownedPool.Stats()
		out.Pool = &st
	} else if wp, ok := e.pool.(*WorkerPool); ok {
		st := wp.Stats()
		out.Pool = &st
	}
	for _, s := range schedules {
		out.Schedules = append(out.Schedules, s.Status())
	}
	return out
}

// Lookup finds a live schedule by name.
//
// Name is normalized by strings.TrimSpace. Empty names are not indexed and always return
// (nil, false).
func (e *Executor) Lookup(name string) (*Schedule, bool) {
	if e == nil {
		return nil, false
	}
	name = normalizeName(name)
	if name == "" {
		return nil, false
	}
	e.mu.Lock()
	s, ok := e.names[name]
	e.mu.Unlock()
	return s, ok
}

// Schedule registers w for recurring execution driven by t.
//
// The schedule name is the managed.IdentityName property (optional, unique among live
// schedules, see ErrInvalidName). Errors are the ones of Submit, plus managed.ErrNilTrigger,
// ErrInvalidName and ErrDuplicateName.
func (e *Executor) Schedule(w managed.Work, t managed.Trigger) (*Schedule, error) {
	if isNilWork(w) {
		return nil, managed.ErrNilTask
	}
	if t == nil {
		return nil, managed.ErrNilTrigger
	}
	props := w.Properties()
	if err := props.Validate(); err != nil {
		return nil, err
	}
	name := normalizeName(props.Identity())
	if err := validateName(name); err != nil {
		return nil, wrapName(ErrInvalidName, name, err)
	}

	e.startMu.RLock()
	defer e.startMu.RUnlock()
	if e.State() != StateRunning {
		return nil, ErrClosed
	}

	s := newSchedule(e, w, t, props, name)

	e.mu.Lock()
	if name != "" {
		if _, exists := e.names[name]; exists {
			e.mu.Unlock()
			return nil, wrapName(ErrDuplicateName, name, nil)
		}
		e.names[name] = s
	}
	e.schedules = append(e.schedules, s)
	e.mu.Unlock()

	e.wg.Add(1)
	go s.loop()
	return s, nil
}

// ScheduleCallable wraps c with opts and registers it for recurring execution driven by t.
// Each LastExecution.Result carries the value of the corresponding run.
func ScheduleCallable[T any](e *Executor, c managed.Callable[T], t managed.Trigger, opts ...managed.Option) (*Schedule, error) {
	w, err := managed.WrapCallable(c, opts...)
	if err != nil {
		return nil, err
	}
	return e.Schedule(w, t)
}

func (e *Executor) forget(s *Schedule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.name != "" && e.names[s.name] == s {
		delete(e.names, s.name)
	}
	for i := range e.schedules {
		if e.schedules[i] == s {
			e.schedules = append(e.schedules[:i], e.schedules[i+1:]...)
			break
		}
	}
}

func (e *Executor) dispatch(job func(), longRunning bool) error {
	if longRunning {
		if lp, ok := e.pool.(LongRunningPool); ok {
			return lp.SubmitLongRunning(job)
		}
	}
	return e.pool.Submit(job)
}

func (e *Executor) listenerFor(w managed.Work) managed.Listener {
	if l := w.Listener(); l != nil {
		return l
	}
	return e.cfg.listener
}

func (e *Executor) logger() *zap.Logger {
	if e.cfg.logger != nil {
		return e.cfg.logger
	}
	return zap.L()
}

// isNilWork catches nil interfaces and typed nils of any Work implementation.
func isNilWork(w managed.Work) bool {
	if w == nil {
		return true
	}
	v := reflect.ValueOf(w)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
