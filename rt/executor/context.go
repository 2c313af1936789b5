package executor

import "context"

type runKey struct{}

type runInfo struct {
	e  *Executor
	id string
}

func withRun(ctx context.Context, e *Executor, id string) context.Context {
	return context.WithValue(ctx, runKey{}, runInfo{e: e, id: id})
}

func runFrom(ctx context.Context) (runInfo, bool) {
	if ctx == nil {
		return runInfo{}, false
	}
	ri, ok := ctx.Value(runKey{}).(runInfo)
	return ri, ok && ri.e != nil
}

// IsShutdown reports whether the executor running the calling work has begun shutting down.
//
// Long-running work should poll it (or watch ctx.Done) and return early. It is false for a
// context that was not produced by an Executor.
func IsShutdown(ctx context.Context) bool {
	ri, ok := runFrom(ctx)
	return ok && ri.e.IsShutdown()
}

// ExecutionID returns the execution instance id of the calling work.
func ExecutionID(ctx context.Context) (string, bool) {
	ri, ok := runFrom(ctx)
	if !ok {
		return "", false
	}
	return ri.id, true
}

// FromContext returns the executor running the calling work.
func FromContext(ctx context.Context) (*Executor, bool) {
	ri, ok := runFrom(ctx)
	return ri.e, ok
}
