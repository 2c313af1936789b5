package executor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/safego"
)

// runInstance runs f on the calling (pool) goroutine and fires the terminal callback.
// It always closes f.finished.
func (e *Executor) runInstance(f *Future) {
	defer close(f.finished)

	if e.ctx.Err() != nil {
		// Forced shutdown: nothing starts any more.
		if f.resolve(nil, ErrClosed) {
			e.abort(f, ErrClosed)
			return
		}
		e.abort(f, f.outcome())
		return
	}

	runCtx, cancel := context.WithCancel(withRun(e.ctx, e, f.id))
	defer cancel()
	if !f.start(runCtx, cancel) {
		// Cancelled while pending; the future already carries the outcome.
		e.abort(f, f.outcome())
		return
	}

	e.notify(f, "starting", func(l managed.Listener) { l.TaskStarting(f, f.work) })

	var result any
	err := safego.Call(runCtx, func(ctx context.Context) error {
		var err error
		result, err = f.work.Invoke(ctx)
		return err
	}, e.safegoOptions(f, "run")...)

	var pe *safego.PanicError
	panicked := errors.As(err, &pe)
	if panicked {
		err = managed.Abort(err)
	}
	err = f.finish(result, err)

	switch {
	case err == nil:
		e.succeeded.Add(1)
	case errors.Is(err, managed.ErrCancelled):
		e.aborted.Add(1)
	default:
		e.failed.Add(1)
	}

	e.notify(f, "done", func(l managed.Listener) { l.TaskDone(f, f.work, err) })

	if err != nil && !panicked && !errors.Is(err, managed.ErrCancelled) {
		e.reportError(f, err)
	}
}

// abort fires TaskAborted for an instance that never started.
func (e *Executor) abort(f *Future, err error) {
	e.aborted.Add(1)
	e.notify(f, "aborted", func(l managed.Listener) { l.TaskAborted(f, f.work, err) })
}

func (e *Executor) notifySubmitted(f *Future) {
	f.submitted.Do(func() {
		e.notify(f, "submitted", func(l managed.Listener) { l.TaskSubmitted(f, f.work) })
	})
}

// notify calls the listener synchronously. A panicking listener is reported and ignored.
func (e *Executor) notify(f *Future, stage string, call func(l managed.Listener)) {
	if f.listener == nil {
		return
	}
	safego.Run(f.Context(), func(context.Context) { call(f.listener) },
		e.safegoOptions(f, "listener."+stage)...)
}

func (e *Executor) reportError(f *Future, err error) {
	if !e.cfg.reportContextCancel && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}
	if e.cfg.onError != nil {
		safego.Run(f.Context(), func(ctx context.Context) {
			e.cfg.onError(ctx, safego.ErrorInfo{
				Name: f.name,
				Tags: e.tags(f, "run"),
				Err:  err,
			})
		}, e.safegoOptions(f, "error-handler")...)
		return
	}
	e.logger().Warn("executor: task failed",
		zap.String("executor", e.cfg.name),
		zap.String("task", f.name),
		zap.String("execution_id", f.id),
		zap.Error(err),
	)
}

func (e *Executor) safegoOptions(f *Future, stage string) []safego.Option {
	return []safego.Option{
		safego.WithName(f.name),
		safego.WithTags(e.tags(f, stage)...),
		safego.WithPanicHandler(e.cfg.onPanic),
		safego.WithLogger(e.cfg.logger),
	}
}

func (e *Executor) tags(f *Future, stage string) []safego.Tag {
	tags := []safego.Tag{
		{Key: "execution_id", Value: f.id},
		{Key: "stage", Value: stage},
	}
	if e.cfg.name != "" {
		tags = append(tags, safego.Tag{Key: "executor", Value: e.cfg.name})
	}
	return tags
}
