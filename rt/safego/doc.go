// Package safego runs user code with panic containment and error reporting.
//
// It is used for everything the executor calls on behalf of a caller: task work, listener
// callbacks and trigger queries. A misbehaving callback must not take down a worker or a
// scheduler goroutine, but its failure must stay observable.
//
// # Synchronous vs asynchronous
//
// Go/GoErr start a new goroutine. Run/RunErr/Call execute synchronously.
//
// Run/RunErr report errors instead of returning them. Call returns the error (and turns a
// recovered panic into *PanicError) so the caller can record it as an outcome.
//
// Nil context: if ctx is nil, safego treats it as context.Background().
//
//	wg.Add(1)
//	safego.GoErr(ctx, work,
//		safego.WithName("cache-refresh"),
//		safego.WithFinally(wg.Done),
//	)
//
// # Reporting
//
// Errors and panics go to WithErrorHandler / WithPanicHandler when provided, otherwise they are
// logged with zap (WithLogger, or the global zap.L()). Tags become a nested "tags" object.
//
// By default, context.Canceled and context.DeadlineExceeded are NOT reported because they are
// common during shutdown. Use WithReportContextCancel(true) to report them.
//
// # Panic policy
//
// RecoverAndReport (default) recovers and reports. RepanicAfterReport reports and panics again.
// RecoverOnly recovers silently.
//
// # Finalizers
//
// WithFinally functions always run (success, error, panic, repanic), in LIFO order. A panicking
// finalizer is contained and reported.
package safego
