package safego

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Go starts fn in a new goroutine, applying the configured panic/error handling.
func Go(ctx context.Context, fn func(context.Context), opts ...Option) {
	GoErr(ctx, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, opts...)
}

// GoErr starts fn in a new goroutine. The returned error is reported, not propagated.
func GoErr(ctx context.Context, fn func(context.Context) error, opts ...Option) {
	go RunErr(ctx, fn, opts...)
}

// Run executes fn synchronously, applying the configured panic/error handling.
func Run(ctx context.Context, fn func(context.Context), opts ...Option) {
	RunErr(ctx, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, opts...)
}

// RunErr executes fn synchronously.
//
// The error returned by fn is not returned to the caller. It is reported via WithErrorHandler
// (or the logger by default), subject to context cancellation filtering.
//
// If ctx is nil, it is treated as context.Background().
func RunErr(ctx context.Context, fn func(context.Context) error, opts ...Option) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := applyOptions(opts)

	defer runFinalizers(ctx, c)
	defer func() {
		if p := recover(); p != nil {
			handlePanic(ctx, c, p, debug.Stack())
		}
	}()

	err := fn(ctx)
	if err == nil {
		return
	}
	if !c.reportContextCancel && isContextCancel(err) {
		return
	}
	c.reportError(ctx, ErrorInfo{
		Name: c.name,
		Tags: cloneTags(c.tags),
		Err:  err,
	})
}

// Call executes fn synchronously and returns its error to the caller.
//
// A panic is recovered, reported according to the panic policy, and returned as *PanicError.
// Under RepanicAfterReport the panic propagates instead. Errors are not reported: the caller
// owns them.
func Call(ctx context.Context, fn func(context.Context) error, opts ...Option) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := applyOptions(opts)

	defer runFinalizers(ctx, c)
	defer func() {
		if p := recover(); p != nil {
			stack := debug.Stack()
			err = &PanicError{Value: p, Stack: stack}
			handlePanic(ctx, c, p, stack)
		}
	}()
	return fn(ctx)
}

func handlePanic(ctx context.Context, c config, p any, stack []byte) {
	if c.panicPolicy == RecoverOnly {
		return
	}
	c.reportPanic(ctx, PanicInfo{
		Name:  c.name,
		Tags:  cloneTags(c.tags),
		Value: p,
		Stack: stack,
	})
	if c.panicPolicy == RepanicAfterReport {
		panic(p)
	}
}

func runFinalizers(ctx context.Context, c config) {
	for i := len(c.finally) - 1; i >= 0; i-- {
		fn := c.finally[i]
		if fn == nil {
			continue
		}
		func() {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				c.reportPanic(ctx, PanicInfo{
					Name:  c.name,
					Tags:  cloneTags(c.tags),
					Value: fmt.Sprintf("safego: finalizer panicked: %v", p),
					Stack: debug.Stack(),
				})
			}()
			fn()
		}()
	}
}

func (c config) reportError(ctx context.Context, info ErrorInfo) {
	if c.onError == nil {
		logError(c.logger, info)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logPanic(c.logger, PanicInfo{
				Name:  info.Name,
				Tags:  info.Tags,
				Value: fmt.Sprintf("safego: error handler panicked: %v", p),
				Stack: debug.Stack(),
			})
		}
	}()
	c.onError(ctx, info)
}

func (c config) reportPanic(ctx context.Context, info PanicInfo) {
	if c.onPanic == nil {
		logPanic(c.logger, info)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logPanic(c.logger, PanicInfo{
				Name:  info.Name,
				Tags:  info.Tags,
				Value: fmt.Sprintf("safego: panic handler panicked: %v", p),
				Stack: debug.Stack(),
			})
		}
	}()
	c.onPanic(ctx, info)
}

func cloneTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Tag, len(tags))
	copy(out, tags)
	return out
}

func isContextCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
