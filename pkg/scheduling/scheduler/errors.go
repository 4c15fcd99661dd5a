package scheduler

import (
	"errors"
	"fmt"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

var (
	// ErrJobNotFound is returned by operations that reference an unknown
	// job id. It wraps ErrNotFound.
	ErrJobNotFound = fmt.Errorf("job %w", cferrors.ErrNotFound)

	// ErrJobCancelled is returned when resuming or rescheduling a job that
	// has been cancelled. It wraps ErrCancelled.
	ErrJobCancelled = fmt.Errorf("job %w", cferrors.ErrCancelled)

	// ErrFuturePending is returned by Future.Result before the future has
	// settled.
	ErrFuturePending = errors.New("scheduler: future has not settled")
)

func notFound(op string, id int) error {
	return cferrors.NewOperationError("scheduler", op, ErrJobNotFound).
		WithContext(fmt.Sprintf("id=%d", id))
}

func cancelled(op string, id int) error {
	return cferrors.NewOperationError("scheduler", op, ErrJobCancelled).
		WithContext(fmt.Sprintf("id=%d", id))
}
