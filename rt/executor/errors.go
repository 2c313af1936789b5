package executor

import (
	"errors"
	"fmt"

	"github.com/evan-idocoding/mexec/rt/managed"
)

var (
	// ErrClosed is returned when the executor is shutting down or already stopped.
	// It wraps managed.ErrRejected.
	ErrClosed = fmt.Errorf("%w: executor closed", managed.ErrRejected)

	// ErrPoolClosed is returned by WorkerPool after Shutdown. It wraps managed.ErrRejected.
	ErrPoolClosed = fmt.Errorf("%w: worker pool closed", managed.ErrRejected)
	// ErrQueueFull is returned by WorkerPool when its queue is full. It wraps managed.ErrRejected.
	ErrQueueFull = fmt.Errorf("%w: worker pool queue full", managed.ErrRejected)
	// ErrRateLimited is returned by WorkerPool when the admission rate is exceeded.
	// It wraps managed.ErrRejected.
	ErrRateLimited = fmt.Errorf("%w: worker pool submit rate exceeded", managed.ErrRejected)

	// ErrInvalidName is returned by Schedule when the identity name is not a valid schedule name.
	//
	// Name rules:
	//   - the name comes from the managed.IdentityName property and is optional
	//   - it is normalized by strings.TrimSpace before validation
	//   - a non-empty name must match [A-Za-z0-9._-]
	ErrInvalidName = fmt.Errorf("%w: invalid schedule name", managed.ErrInvalidArgument)

	// ErrDuplicateName is returned by Schedule when a live schedule already uses the name.
	ErrDuplicateName = errors.New("executor: duplicate schedule name")

	// ErrResultType is returned by Result when the produced value does not have the requested type.
	ErrResultType = errors.New("executor: unexpected result type")
)

// rejected makes sure a pool error can be matched with managed.ErrRejected.
func rejected(err error) error {
	if err == nil || errors.Is(err, managed.ErrRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", managed.ErrRejected, err)
}
