// Package mexec is a managed task execution runtime: work that describes itself, triggers
// that decide when it runs, and an executor that runs it on a bounded worker pool while
// reporting every lifecycle stage.
//
// The module is organized in layers:
//
//   - rt/managed: the contract. Runnable and Callable work, Task metadata (identity,
//     execution properties, listener), Listener, Trigger and LastExecution.
//   - rt/trigger: ready-made triggers (Once, After, Every, FixedDelay, Fibonacci) and
//     combinators (Until, SkipIf, SkipLate, Limit).
//   - rt/executor: the Executor with its Future and Schedule handles, and WorkerPool.
//   - rt/safego: panic-safe goroutines used by the executor for work and callbacks.
//   - ops, httpx: operational HTTP handlers (health, schedules, log level), their client,
//     and the middlewares that protect them.
//   - cmd/mexecd: a daemon that runs jobs declared in a YAML file; cmd/mexecctl talks to it.
//
// # Quick start
//
//	e := executor.New(executor.WithName("app"))
//	defer e.Shutdown(context.Background())
//
//	w, _ := managed.WrapRunnable(managed.RunnableFunc(func(ctx context.Context) error {
//		return refresh(ctx)
//	}), managed.WithProperties(managed.Properties{managed.IdentityName: "refresh"}))
//
//	s, _ := e.Schedule(w, trigger.Every(time.Minute))
//	_ = s
package mexec
