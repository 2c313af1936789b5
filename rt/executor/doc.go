// Package executor runs managed work (see package managed) on a worker pool, either once or
// on a timeline driven by a managed.Trigger.
//
// # One-shot submission
//
//	e := executor.New(executor.WithName("jobs"))
//	defer e.Shutdown(context.Background())
//
//	w, _ := managed.WrapRunnable(managed.RunnableFunc(sendReport),
//		managed.WithProperties(managed.Properties{managed.IdentityName: "send-report"}),
//		managed.WithListener(audit),
//	)
//	f, err := e.Submit(w)
//	if err != nil {
//		return err // managed.ErrInvalidArgument, ErrClosed, or wrapping managed.ErrRejected
//	}
//	_, err = f.Get(ctx)
//
// Callables keep their type through the generic helpers:
//
//	f, _ := executor.Submit(e, managed.CallableFunc[int](count))
//	n, err := executor.Result[int](ctx, f)
//
// InvokeAll and InvokeAny run a batch of callables in parallel:
//
//	futures, err := executor.InvokeAll(ctx, e, retrievers)
//	first, err := executor.InvokeAny(ctx, e, retrievers)
//
// # Lifecycle notifications
//
// For every execution instance the listener sees TaskSubmitted, then TaskStarting, then
// exactly one of TaskDone or TaskAborted. TaskAborted means the work never ran: it was
// cancelled while pending, skipped by its trigger, or the executor was forced to stop.
// TaskDone carries nil, the work's error, managed.ErrCancelled (cancelled while running) or
// a *managed.AbortedError wrapping a *safego.PanicError. A one-shot submission that is
// refused (pool rejection or ErrClosed) is returned to the caller and also reported as
// TaskAborted with the same error, without a preceding TaskSubmitted.
//
// Callbacks run synchronously on the goroutine driving the instance; a panicking callback is
// reported and does not change the outcome.
//
// # Recurring execution
//
//	s, err := e.Schedule(w, trigger.Every(time.Minute))
//	...
//	s.Cancel()
//	err = s.Wait(ctx) // managed.ErrCancelled
//
// A schedule asks its trigger for the next run time, waits for it, asks whether to skip, and
// runs the work on the pool. It waits for the run to end before asking again: runs of one
// schedule never overlap. The trigger always receives a private copy of the last execution;
// skipped runs are reported as a LastExecution with OutcomeSkipped and a zero RunStart.
//
// # Shutdown
//
// Shutdown stops accepting work, cancels schedules and waits for accepted work to drain.
// Work can observe it through its context: ctx.Done for forced stops, IsShutdown(ctx) for
// the graceful phase.
package executor
