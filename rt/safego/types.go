package safego

import (
	"context"
	"fmt"
)

// Tag is a key/value pair attached to reports. Order is preserved.
type Tag struct {
	Key   string
	Value string
}

// ErrorHandler is called when a function returns a non-nil error (subject to filtering).
type ErrorHandler func(ctx context.Context, info ErrorInfo)

// ErrorInfo describes an error returned from a function.
type ErrorInfo struct {
	Name string
	Tags []Tag
	Err  error
}

// PanicHandler is called when a function panics (subject to policy).
type PanicHandler func(ctx context.Context, info PanicInfo)

// PanicInfo describes a recovered panic.
type PanicInfo struct {
	Name  string
	Tags  []Tag
	Value any
	Stack []byte
}

// PanicPolicy controls how panics are handled.
type PanicPolicy int

const (
	// RecoverAndReport recovers the panic and reports it via PanicHandler (or the logger by default).
	RecoverAndReport PanicPolicy = iota
	// RecoverOnly recovers the panic without reporting it.
	RecoverOnly
	// RepanicAfterReport recovers the panic, reports it, then panics again with the same value.
	RepanicAfterReport
)

func (p PanicPolicy) String() string {
	switch p {
	case RecoverAndReport:
		return "recover-and-report"
	case RecoverOnly:
		return "recover-only"
	case RepanicAfterReport:
		return "repanic-after-report"
	default:
		return fmt.Sprintf("PanicPolicy(%d)", int(p))
	}
}

// PanicError is returned by Call when the function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
