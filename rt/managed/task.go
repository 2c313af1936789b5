package managed

import "context"

// Runnable is a side-effecting unit of work.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnableFunc) Run(ctx context.Context) error { return f(ctx) }

// Callable is a result-producing unit of work.
type Callable[T any] interface {
	Call(ctx context.Context) (T, error)
}

// CallableFunc adapts a function to Callable.
type CallableFunc[T any] func(ctx context.Context) (T, error)

// Call calls f(ctx).
func (f CallableFunc[T]) Call(ctx context.Context) (T, error) { return f(ctx) }

// Task is implemented by work that describes itself: identity, execution properties and
// a lifecycle listener. A Runnable or Callable may also implement Task; envelopes always do.
type Task interface {
	// IdentityDescription returns a human readable description for the given locale.
	// Implementations may ignore the locale.
	IdentityDescription(locale string) string
	// Listener returns the lifecycle listener, or nil.
	Listener() Listener
	// Properties returns the execution properties, or nil if none were provided.
	Properties() Properties
}

// Work is what an executor runs: a self-describing task with a uniform invocation.
// Both RunnableTask and CallableTask implement it.
type Work interface {
	Task
	// Invoke runs the wrapped work. Runnables produce a nil result.
	Invoke(ctx context.Context) (any, error)
}

type wrapConfig struct {
	props    Properties
	listener Listener
}

// Option configures WrapRunnable / WrapCallable.
type Option func(*wrapConfig)

// WithProperties supplies override properties layered on top of the work's own properties.
//
// A nil p means "no override provided". The map is copied during wrapping; later changes
// by the caller are not observable through the envelope.
func WithProperties(p Properties) Option {
	return func(c *wrapConfig) { c.props = p }
}

// WithListener supplies a listener that replaces the work's own listener.
func WithListener(l Listener) Option {
	return func(c *wrapConfig) { c.listener = l }
}

func applyOptions(opts []Option) wrapConfig {
	var c wrapConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// envelope is the merged, immutable view shared by both task kinds.
type envelope struct {
	props    Properties
	listener Listener
	// inner is the wrapped work's own description, if it has one.
	inner Task
}

func newEnvelope(work any, c wrapConfig) envelope {
	inner, _ := work.(Task)
	var base Properties
	if inner != nil {
		base = inner.Properties()
	}
	env := envelope{
		props:    MergeProperties(base, c.props),
		listener: c.listener,
		inner:    inner,
	}
	if env.listener == nil && inner != nil {
		env.listener = inner.Listener()
	}
	return env
}

// IdentityDescription returns the inner work's description when it is non-empty, and falls
// back to the IdentityName property otherwise.
func (e *envelope) IdentityDescription(locale string) string {
	if e.inner != nil {
		if d := e.inner.IdentityDescription(locale); d != "" {
			return d
		}
	}
	return e.props.Identity()
}

// Listener returns the effective listener (override, else the work's own, else nil).
func (e *envelope) Listener() Listener { return e.listener }

// Properties returns a copy of the merged properties (nil if none).
func (e *envelope) Properties() Properties { return e.props.Clone() }

// RunnableTask is an envelope around a Runnable.
type RunnableTask struct {
	envelope
	work Runnable
}

// WrapRunnable wraps work into an envelope.
//
// It fails with ErrNilTask if work is nil. If work implements Task, its properties are the
// merge base and its listener is used unless WithListener supplies one.
func WrapRunnable(work Runnable, opts ...Option) (*RunnableTask, error) {
	if isNilRunnable(work) {
		return nil, ErrNilTask
	}
	return &RunnableTask{
		envelope: newEnvelope(work, applyOptions(opts)),
		work:     work,
	}, nil
}

// Run runs the wrapped work.
func (t *RunnableTask) Run(ctx context.Context) error { return t.work.Run(ctx) }

// Invoke implements Work.
func (t *RunnableTask) Invoke(ctx context.Context) (any, error) {
	return nil, t.work.Run(ctx)
}

// Unwrap returns the wrapped work.
func (t *RunnableTask) Unwrap() Runnable { return t.work }

// CallableTask is an envelope around a Callable.
type CallableTask[T any] struct {
	envelope
	work Callable[T]
}

// WrapCallable wraps work into an envelope. Semantics match WrapRunnable.
func WrapCallable[T any](work Callable[T], opts ...Option) (*CallableTask[T], error) {
	if isNilCallable(work) {
		return nil, ErrNilTask
	}
	return &CallableTask[T]{
		envelope: newEnvelope(work, applyOptions(opts)),
		work:     work,
	}, nil
}

// Call runs the wrapped work.
func (t *CallableTask[T]) Call(ctx context.Context) (T, error) { return t.work.Call(ctx) }

// Invoke implements Work.
func (t *CallableTask[T]) Invoke(ctx context.Context) (any, error) {
	return t.work.Call(ctx)
}

// Unwrap returns the wrapped work.
func (t *CallableTask[T]) Unwrap() Callable[T] { return t.work }

// AsWork returns w unchanged if it already implements Work, wraps a Runnable otherwise,
// and fails with ErrNilTask for nil.
func AsWork(w Runnable) (Work, error) {
	if isNilRunnable(w) {
		return nil, ErrNilTask
	}
	if ww, ok := w.(Work); ok {
		return ww, nil
	}
	return WrapRunnable(w)
}

func isNilRunnable(w Runnable) bool {
	if w == nil {
		return true
	}
	switch f := w.(type) {
	case RunnableFunc:
		return f == nil
	case *RunnableTask:
		return f == nil
	}
	return false
}

func isNilCallable[T any](w Callable[T]) bool {
	if w == nil {
		return true
	}
	switch f := w.(type) {
	case CallableFunc[T]:
		return f == nil
	case *CallableTask[T]:
		return f == nil
	}
	return false
}
