package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evan-idocoding/mexec/rt/managed"
)

const waitTimeout = 2 * time.Second

// event is one listener callback, e.g. "submitted", "starting", "done:<nil>", "aborted:<err>".
type event struct {
	id    string
	stage string
	err   error
}

func (ev event) String() string {
	if ev.stage == "submitted" || ev.stage == "starting" {
		return ev.stage
	}
	return fmt.Sprintf("%s:%v", ev.stage, ev.err)
}

type recorder struct {
	mu     sync.Mutex
	events []event
	// submitted receives the instance id after TaskSubmitted.
	submitted chan string
	// terminal receives the instance id after TaskDone/TaskAborted.
	terminal chan string
}

func newRecorder() *recorder {
	return &recorder{
		submitted: make(chan string, 64),
		terminal:  make(chan string, 64),
	}
}

func (r *recorder) add(f managed.Future, stage string, err error) {
	r.mu.Lock()
	r.events = append(r.events, event{id: f.ID(), stage: stage, err: err})
	r.mu.Unlock()
}

func (r *recorder) TaskSubmitted(f managed.Future, _ managed.Task) {
	r.add(f, "submitted", nil)
	r.submitted <- f.ID()
}

func (r *recorder) TaskStarting(f managed.Future, _ managed.Task) { r.add(f, "starting", nil) }

func (r *recorder) TaskAborted(f managed.Future, _ managed.Task, err error) {
	r.add(f, "aborted", err)
	r.terminal <- f.ID()
}

func (r *recorder) TaskDone(f managed.Future, _ managed.Task, err error) {
	r.add(f, "done", err)
	r.terminal <- f.ID()
}

func (r *recorder) of(id string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, ev := range r.events {
		if ev.id == id {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) waitTerminal(t *testing.T) string {
	t.Helper()
	select {
	case id := <-r.terminal:
		return id
	case <-time.After(waitTimeout):
		t.Fatalf("timeout waiting for a terminal callback")
		return ""
	}
}

func (r *recorder) waitSubmitted(t *testing.T) string {
	t.Helper()
	select {
	case id := <-r.submitted:
		return id
	case <-time.After(waitTimeout):
		t.Fatalf("timeout waiting for TaskSubmitted")
		return ""
	}
}

func stages(evs []event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.stage)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func wrap(t *testing.T, fn func(ctx context.Context) error, opts ...managed.Option) *managed.RunnableTask {
	t.Helper()
	w, err := managed.WrapRunnable(managed.RunnableFunc(fn), opts...)
	if err != nil {
		t.Fatalf("WrapRunnable: %v", err)
	}
	return w
}

func named(name string) managed.Option {
	return managed.WithProperties(managed.Properties{managed.IdentityName: name})
}

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	p := NewWorkerPool(WithWorkers(4))
	e := New(append([]Option{WithPool(p)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = e.Shutdown(ctx)
		_ = p.Shutdown(ctx)
	})
	return e
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("timeout waiting for %s", what)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
