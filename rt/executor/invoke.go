package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/evan-idocoding/mexec/rt/managed"
)

// InvokeAll runs every callable on e and waits until all instances are done.
//
// Each callable is wrapped with opts. All of them are wrapped before anything is submitted,
// so a nil callable fails the call with managed.ErrNilTask without running anything. If a
// submission is refused, the instances already accepted are cancelled and the error is
// returned.
//
// The returned futures are in input order; use Result to read each value. If ctx is done
// first, the unfinished instances are cancelled and the futures are returned with ctx.Err().
func InvokeAll[T any](ctx context.Context, e *Executor, tasks []managed.Callable[T], opts ...managed.Option) ([]*Future, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	futures, err := submitAll(e, tasks, opts)
	if err != nil {
		return nil, err
	}
	for _, f := range futures {
		select {
		case <-f.Done():
		case <-ctx.Done():
			cancelAll(futures)
			return futures, ctx.Err()
		}
	}
	return futures, nil
}

// InvokeAny runs every callable on e and returns the result of the first one that succeeds.
// The other instances are cancelled once a result is known.
//
// If every instance fails, the joined errors are returned. An empty tasks fails with
// managed.ErrInvalidArgument. Submission errors and ctx behave as in InvokeAll.
func InvokeAny[T any](ctx context.Context, e *Executor, tasks []managed.Callable[T], opts ...managed.Option) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tasks) == 0 {
		return zero, fmt.Errorf("%w: no tasks", managed.ErrInvalidArgument)
	}
	futures, err := submitAll(e, tasks, opts)
	if err != nil {
		return zero, err
	}
	defer cancelAll(futures)

	done := make(chan *Future, len(futures))
	for _, f := range futures {
		go func(f *Future) {
			<-f.Done()
			done <- f
		}(f)
	}

	errs := make([]error, 0, len(futures))
	for range futures {
		select {
		case f := <-done:
			v, err := Result[T](context.Background(), f)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, errors.Join(errs...)
}

func submitAll[T any](e *Executor, tasks []managed.Callable[T], opts []managed.Option) ([]*Future, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil executor", managed.ErrInvalidArgument)
	}
	works := make([]managed.Work, 0, len(tasks))
	for i, c := range tasks {
		w, err := managed.WrapCallable(c, opts...)
		if err != nil {
			return nil, fmt.Errorf("executor: task %d: %w", i, err)
		}
		works = append(works, w)
	}
	futures := make([]*Future, 0, len(works))
	for _, w := range works {
		f, err := e.Submit(w)
		if err != nil {
			cancelAll(futures)
			return nil, err
		}
		futures = append(futures, f)
	}
	return futures, nil
}

func cancelAll(futures []*Future) {
	for _, f := range futures {
		f.Cancel()
	}
}
