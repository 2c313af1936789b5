package safego

import "go.uber.org/zap"

type config struct {
	name string
	tags []Tag

	finally []func()

	onError             ErrorHandler
	reportContextCancel bool

	onPanic     PanicHandler
	panicPolicy PanicPolicy

	logger *zap.Logger
}

// Option configures a single Go/GoErr/Run/RunErr/Call call.
type Option func(*config)

func defaultConfig() config {
	return config{
		panicPolicy:         RecoverAndReport,
		reportContextCancel: false,
	}
}

func applyOptions(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithName sets a human-friendly name carried by reports.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithTag appends a single tag (key/value) to reports.
func WithTag(key, value string) Option {
	return func(c *config) {
		c.tags = append(c.tags, Tag{Key: key, Value: value})
	}
}

// WithTags appends tags to reports (preserving order).
func WithTags(tags ...Tag) Option {
	return func(c *config) {
		if len(tags) == 0 {
			return
		}
		c.tags = append(c.tags, tags...)
	}
}

// WithFinally registers a function to be called when execution finishes.
//
// Finalizers are executed in LIFO order (like defer). A panicking finalizer is recovered
// and reported; it is not rethrown.
func WithFinally(fn func()) Option {
	return func(c *config) {
		if fn == nil {
			return
		}
		c.finally = append(c.finally, fn)
	}
}

// WithErrorHandler sets the error handler. If not set, errors are logged.
// Panics in the handler are recovered and logged.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) { c.onError = h }
}

// WithReportContextCancel controls whether context.Canceled and context.DeadlineExceeded
// are reported. Default false.
func WithReportContextCancel(report bool) Option {
	return func(c *config) { c.reportContextCancel = report }
}

// WithPanicHandler sets the panic handler. If not set, panics are logged
// (unless the policy is RecoverOnly).
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) { c.onPanic = h }
}

// WithPanicPolicy sets the panic handling policy.
func WithPanicPolicy(p PanicPolicy) Option {
	return func(c *config) { c.panicPolicy = p }
}

// WithLogger sets the logger used when no handler is configured. Default is zap.L(),
// resolved at report time.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}
