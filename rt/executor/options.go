package executor

import (
	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/safego"
)

type config struct {
	name string

	pool Pool

	logger *zap.Logger

	onError             safego.ErrorHandler
	onPanic             safego.PanicHandler
	reportContextCancel bool

	listener managed.Listener
}

// Option configures New.
type Option func(*config)

// WithName sets the executor name used in logs and snapshots.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithPool sets the pool that runs the work.
//
// If not set, the executor creates a WorkerPool and shuts it down on Shutdown. A pool
// supplied here is not shut down by the executor.
func WithPool(p Pool) Option {
	return func(c *config) { c.pool = p }
}

// WithLogger sets the logger. Default is zap.L(), resolved at log time.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithErrorHandler sets the handler for errors returned by work.
// If not set, errors are logged.
func WithErrorHandler(h safego.ErrorHandler) Option {
	return func(c *config) { c.onError = h }
}

// WithPanicHandler sets the handler for panics raised by work, listeners and triggers.
// If not set, panics are logged.
func WithPanicHandler(h safego.PanicHandler) Option {
	return func(c *config) { c.onPanic = h }
}

// WithReportContextCancel controls whether context.Canceled and context.DeadlineExceeded
// returned by work are reported. Default false.
func WithReportContextCancel(report bool) Option {
	return func(c *config) { c.reportContextCancel = report }
}

// WithDefaultListener sets the listener used for work that has none of its own.
func WithDefaultListener(l managed.Listener) Option {
	return func(c *config) { c.listener = l }
}
