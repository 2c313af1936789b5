package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evan-idocoding/mexec/internal/config"
	"github.com/evan-idocoding/mexec/rt/executor"
)

// Service runs the configured jobs on an executor and serves the operational endpoints.
//
// Lifecycle: New -> Start -> (Wait | Shutdown). Run combines them and also stops on OS
// signals. Construction errors are returned from New; runtime errors from Start, Wait,
// Run and Shutdown.
type Service struct {
	cfg    config.Config
	logger *zap.Logger
	level  zap.AtomicLevel

	// Pool and Executor are exposed for inspection and for submitting extra work.
	Pool     *executor.WorkerPool
	Executor *executor.Executor

	srv *http.Server

	mu         sync.Mutex
	started    bool
	ln         net.Listener
	primaryErr error
	waitErr    error

	shutdownOnce sync.Once
	shutdownErr  error
	doneCh       chan struct{}
}

// New builds a Service from c. A nil logger means zap.L(); level is the adjustable level
// exposed on the log level endpoint.
func New(c config.Config, logger *zap.Logger, level zap.AtomicLevel) (*Service, error) {
	if logger == nil {
		logger = zap.L()
	}
	if c.ShutdownTimeout <= 0 {
		return nil, errors.New("daemon: shutdown timeout must be > 0")
	}

	popts := []executor.PoolOption{
		executor.WithPoolName(c.Name),
		executor.WithPoolLogger(logger),
		executor.WithWorkers(c.Pool.Workers),
		executor.WithQueueSize(c.Pool.QueueSize),
	}
	if c.Pool.SubmitRate > 0 {
		popts = append(popts, executor.WithSubmitRate(rate.Limit(c.Pool.SubmitRate), c.Pool.SubmitBurst))
	}
	pool := executor.NewWorkerPool(popts...)

	exec := executor.New(
		executor.WithName(c.Name),
		executor.WithPool(pool),
		executor.WithLogger(logger),
		executor.WithDefaultListener(LogListener(logger)),
	)

	s := &Service{
		cfg:      c,
		logger:   logger,
		level:    level,
		Pool:     pool,
		Executor: exec,
		doneCh:   make(chan struct{}),
	}
	if c.Ops.Enable {
		s.srv = newHTTPServer(c.Ops.Listen, OpsHandler(c.Ops, exec, level, logger))
	}
	return s, nil
}

// Addr returns the bound address of the operational server, or "" if it is not listening.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start schedules the configured jobs and starts serving. It does not block.
//
// Start may be called once. On failure the Service is shut down and the error returned.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("daemon: service already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		s.recordPrimary(err)
		s.initiateShutdown()
		return err
	}
	if _, err := RegisterJobs(s.Executor, s.cfg.Jobs, s.logger); err != nil {
		s.recordPrimary(err)
		s.initiateShutdown()
		return err
	}
	if s.srv != nil {
		if err := s.serve(); err != nil {
			s.recordPrimary(err)
			s.initiateShutdown()
			return err
		}
	}
	s.logger.Info("daemon: started",
		zap.String("name", s.cfg.Name),
		zap.Int("jobs", len(s.cfg.Jobs)),
		zap.String("ops_addr", s.Addr()),
	)
	return nil
}

func (s *Service) serve() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("daemon: ops listen %q: %w", s.srv.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		err := s.srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		s.recordPrimary(fmt.Errorf("daemon: ops server: %w", err))
		s.initiateShutdown()
	}()
	return nil
}

// Run starts the service and blocks until ctx is done, an OS signal arrives or the
// operational server fails; then it shuts down and returns the combined error.
// A ctx cancelled after Start succeeded is a normal stop and is not reported.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(ctx, defaultSignals()...)
	defer stop()

	if err := s.Start(sigCtx); err != nil {
		<-s.doneCh
		return err
	}
	select {
	case <-sigCtx.Done():
		s.logger.Info("daemon: stopping", zap.String("cause", stopCause(ctx)))
		s.initiateShutdown()
	case <-s.doneCh:
	}
	return s.Wait()
}

func stopCause(parent context.Context) string {
	if parent.Err() != nil {
		return "context"
	}
	return "signal"
}

// Wait blocks until shutdown finished and returns the first runtime error joined with any
// shutdown error.
func (s *Service) Wait() error {
	<-s.doneCh
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// Done is closed once shutdown finished.
func (s *Service) Done() <-chan struct{} { return s.doneCh }

// Shutdown triggers shutdown and waits for it, bounded by ctx. It is idempotent.
func (s *Service) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.initiateShutdown()
	select {
	case <-s.doneCh:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.shutdownErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) recordPrimary(err error) {
	s.mu.Lock()
	if s.primaryErr == nil {
		s.primaryErr = err
	}
	s.mu.Unlock()
}

func (s *Service) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		go s.doShutdown()
	})
}

// doShutdown stops the server first so no new cancel requests arrive, then the executor,
// then the pool it submits to.
func (s *Service) doShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if s.srv != nil && ln != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			_ = s.srv.Close()
			errs = append(errs, fmt.Errorf("ops server shutdown: %w", err))
		}
		_ = ln.Close()
	}
	if err := s.Executor.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("executor shutdown: %w", err))
	}
	if err := s.Pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pool shutdown: %w", err))
	}

	shutdownErr := errors.Join(errs...)
	if shutdownErr != nil {
		s.logger.Warn("daemon: shutdown incomplete", zap.Error(shutdownErr))
	} else {
		s.logger.Info("daemon: stopped", zap.String("name", s.cfg.Name))
	}

	s.mu.Lock()
	s.shutdownErr = shutdownErr
	s.waitErr = errors.Join(s.primaryErr, shutdownErr)
	s.mu.Unlock()
	close(s.doneCh)
}
