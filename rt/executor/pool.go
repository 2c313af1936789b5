package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/safego"
)

// Pool runs jobs. It is the boundary to whatever actually provides goroutines.
//
// Submit must not block for long. It returns an error (ideally wrapping managed.ErrRejected)
// when it cannot accept the job; in that case the job must never run. Once Submit returned
// nil, the job must run exactly once.
type Pool interface {
	Submit(job func()) error
}

// LongRunningPool is implemented by pools that can run a job outside of their regular
// workers. The executor uses it for tasks carrying managed.LongRunningHint=true.
type LongRunningPool interface {
	Pool
	SubmitLongRunning(job func()) error
}

// PoolFunc adapts a function to Pool.
type PoolFunc func(job func()) error

// Submit calls f(job).
func (f PoolFunc) Submit(job func()) error { return f(job) }

// GoPool starts a goroutine per job. It never rejects.
var GoPool Pool = PoolFunc(func(job func()) error {
	go job()
	return nil
})

type poolConfig struct {
	name    string
	workers int
	queue   int

	limit rate.Limit
	burst int

	logger *zap.Logger
}

// PoolOption configures NewWorkerPool.
type PoolOption func(*poolConfig)

// WithWorkers sets the number of worker goroutines. Default is runtime.NumCPU().
//
// If n <= 0, NewWorkerPool panics (configuration error).
func WithWorkers(n int) PoolOption {
	return func(c *poolConfig) { c.workers = n }
}

// WithQueueSize sets the number of jobs that may wait for a worker. Default is 1024.
// Zero means a job is only accepted when a worker is idle.
//
// If n < 0, NewWorkerPool panics (configuration error).
func WithQueueSize(n int) PoolOption {
	return func(c *poolConfig) { c.queue = n }
}

// WithSubmitRate limits the admission rate (token bucket). Submissions over the limit are
// rejected with ErrRateLimited. Default is unlimited.
func WithSubmitRate(limit rate.Limit, burst int) PoolOption {
	return func(c *poolConfig) {
		c.limit = limit
		c.burst = burst
	}
}

// WithPoolName sets the name carried by panic reports.
func WithPoolName(name string) PoolOption {
	return func(c *poolConfig) { c.name = name }
}

// WithPoolLogger sets the logger used for job panics. Default is zap.L().
func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(c *poolConfig) { c.logger = l }
}

// PoolStats is a point-in-time view of a WorkerPool.
type PoolStats struct {
	Workers  int `json:"workers"`
	QueueLen int `json:"queue_len"`
	QueueCap int `json:"queue_cap"`

	Submitted   uint64 `json:"submitted"`
	Rejected    uint64 `json:"rejected"`
	Completed   uint64 `json:"completed"`
	LongRunning int64  `json:"long_running"`
}

// WorkerPool is a fixed set of workers fed by a bounded queue.
//
// Submit never blocks: a full queue rejects with ErrQueueFull. Jobs run under safego, so a
// panicking job is reported and never kills a worker.
type WorkerPool struct {
	cfg     poolConfig
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
	jobs   chan func()

	wg sync.WaitGroup

	submitted   atomic.Uint64
	rejected    atomic.Uint64
	completed   atomic.Uint64
	longRunning atomic.Int64
}

var _ LongRunningPool = (*WorkerPool)(nil)

// NewWorkerPool creates a pool and starts its workers.
func NewWorkerPool(opts ...PoolOption) *WorkerPool {
	c := poolConfig{
		workers: runtime.NumCPU(),
		queue:   1024,
		limit:   rate.Inf,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.workers <= 0 {
		panic(fmt.Sprintf("executor: WithWorkers(%d) is invalid (must be > 0)", c.workers))
	}
	if c.queue < 0 {
		panic(fmt.Sprintf("executor: WithQueueSize(%d) is invalid (must be >= 0)", c.queue))
	}

	p := &WorkerPool{
		cfg:  c,
		jobs: make(chan func(), c.queue),
	}
	if c.limit != rate.Inf {
		p.limiter = rate.NewLimiter(c.limit, c.burst)
	}
	p.wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues job for a worker.
func (p *WorkerPool) Submit(job func()) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", managed.ErrInvalidArgument)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.admitLocked(); err != nil {
		return err
	}
	select {
	case p.jobs <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// SubmitLongRunning runs job on its own goroutine, outside of the worker set, so that it
// cannot starve queued jobs. It is still subject to the admission rate and Shutdown.
func (p *WorkerPool) SubmitLongRunning(job func()) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", managed.ErrInvalidArgument)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.admitLocked(); err != nil {
		return err
	}
	p.submitted.Add(1)
	p.longRunning.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.longRunning.Add(-1)
		p.run(job)
	}()
	return nil
}

func (p *WorkerPool) admitLocked() error {
	if p.closed {
		p.rejected.Add(1)
		return ErrPoolClosed
	}
	if p.limiter != nil && !p.limiter.Allow() {
		p.rejected.Add(1)
		return ErrRateLimited
	}
	return nil
}

// Shutdown stops accepting jobs, lets the workers drain the queue, and waits for them.
//
// It is safe to call multiple times. If ctx is done first, ctx.Err() is returned and the
// workers keep draining in the background.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a point-in-time view of the pool.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:     p.cfg.workers,
		QueueLen:    len(p.jobs),
		QueueCap:    cap(p.jobs),
		Submitted:   p.submitted.Load(),
		Rejected:    p.rejected.Load(),
		Completed:   p.completed.Load(),
		LongRunning: p.longRunning.Load(),
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *WorkerPool) run(job func()) {
	defer p.completed.Add(1)
	safego.Run(context.Background(), func(context.Context) { job() },
		safego.WithName(p.cfg.name),
		safego.WithTag("component", "worker-pool"),
		safego.WithLogger(p.cfg.logger),
	)
}
