package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/evan-idocoding/mexec/rt/managed"
)

func TestWorkerPool_RunsJobs(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(3), WithQueueSize(16))
	var wg sync.WaitGroup
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}); err != nil {
			t.Fatalf("Submit err=%v", err)
		}
	}
	wg.Wait()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}
	if n.Load() != 10 {
		t.Fatalf("ran=%d, want 10", n.Load())
	}
	if st := p.Stats(); st.Submitted != 10 || st.Completed != 10 || st.Workers != 3 || st.QueueCap != 16 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestWorkerPool_QueueFull_Rejects(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(1), WithQueueSize(1))
	defer p.Shutdown(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit err=%v", err)
	}
	waitClosed(t, started, "first job")

	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("queued Submit err=%v", err)
	}
	err := p.Submit(func() {})
	if !errors.Is(err, ErrQueueFull) || !errors.Is(err, managed.ErrRejected) {
		t.Fatalf("err=%v, want ErrQueueFull", err)
	}
	close(release)
	if st := p.Stats(); st.Rejected != 1 {
		t.Fatalf("rejected=%d, want 1", st.Rejected)
	}
}

func TestWorkerPool_RateLimit(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(1), WithSubmitRate(rate.Every(time.Hour), 1))
	defer p.Shutdown(context.Background())

	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("first Submit err=%v", err)
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second Submit err=%v, want ErrRateLimited", err)
	}
	if err := p.SubmitLongRunning(func() {}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("SubmitLongRunning err=%v, want ErrRateLimited", err)
	}
}

func TestWorkerPool_ShutdownDrainsAndRejects(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(1), WithQueueSize(8))
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		if err := p.Submit(func() {
			time.Sleep(time.Millisecond)
			n.Add(1)
		}); err != nil {
			t.Fatalf("Submit err=%v", err)
		}
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}
	if n.Load() != 5 {
		t.Fatalf("drained=%d, want 5", n.Load())
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit after Shutdown err=%v", err)
	}
	if err := p.SubmitLongRunning(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("SubmitLongRunning after Shutdown err=%v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown err=%v", err)
	}
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(1))
	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.Submit(func() {
		close(started)
		<-release
	})
	waitClosed(t, started, "job start")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown err=%v, want DeadlineExceeded", err)
	}
	close(release)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}
}

func TestWorkerPool_PanickingJobDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	p := NewWorkerPool(WithWorkers(1), WithPoolName("pool"), WithPoolLogger(zap.New(core)))
	defer p.Shutdown(context.Background())

	_ = p.Submit(func() { panic("job") })
	done := make(chan struct{})
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit err=%v", err)
	}
	waitClosed(t, done, "job after panic")

	entries := logs.FilterMessage("safego: panic").All()
	if len(entries) != 1 || entries[0].ContextMap()["name"] != "pool" {
		t.Fatalf("panic log entries=%v", entries)
	}
}

func TestWorkerPool_SubmitLongRunning(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(WithWorkers(1), WithQueueSize(1))
	defer p.Shutdown(context.Background())

	// Occupy the only worker; a long-running job must still start.
	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.Submit(func() {
		close(started)
		<-release
	})
	waitClosed(t, started, "worker job")

	done := make(chan struct{})
	if err := p.SubmitLongRunning(func() { close(done) }); err != nil {
		t.Fatalf("SubmitLongRunning err=%v", err)
	}
	waitClosed(t, done, "long-running job")
	close(release)
}

func TestWorkerPool_InvalidConfigPanics(t *testing.T) {
	t.Parallel()

	for name, opts := range map[string][]PoolOption{
		"workers": {WithWorkers(0)},
		"queue":   {WithQueueSize(-1)},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			NewWorkerPool(opts...)
		}()
	}

	p := NewWorkerPool(WithWorkers(1))
	defer p.Shutdown(context.Background())
	if err := p.Submit(nil); !errors.Is(err, managed.ErrInvalidArgument) {
		t.Fatalf("nil job err=%v", err)
	}
}
