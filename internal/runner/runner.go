// Package runner executes the daemon's shell-command jobs.
//
// Commands run on their own goroutine so the event loop is never blocked:
// JobFunc hands the scheduler a *scheduler.Future that settles when the
// command exits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

// DefaultShell runs every command as "sh -c <command>".
const DefaultShell = "/bin/sh"

// waitDelay bounds how long Wait blocks on output pipes held open by
// orphaned children after the command is killed.
const waitDelay = 5 * time.Second

// Result is the outcome of one command run.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	StartedAt time.Time
	Duration  time.Duration
	TimedOut  bool
}

// ExitError reports a command that ran but did not succeed.
type ExitError struct {
	Job    string
	Result *Result
}

func (e *ExitError) Error() string {
	if e.Result.TimedOut {
		return fmt.Sprintf("job %s: timed out after %s", e.Job, e.Result.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("job %s: exit status %d", e.Job, e.Result.ExitCode)
}

// Unwrap lets errors.Is match ErrTimeout for timed out commands.
func (e *ExitError) Unwrap() error {
	if e.Result.TimedOut {
		return cferrors.ErrTimeout
	}
	return nil
}

// Runner runs shell commands and tracks the ones in flight.
type Runner struct {
	shell  string
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// New creates a runner using DefaultShell.
func New(logger zerolog.Logger) *Runner {
	return &Runner{shell: DefaultShell, logger: logger}
}

// Run executes command and waits for it. A zero timeout means no limit.
// A non-zero exit or a timeout is reported in the Result, not as an error;
// the error is for commands that could not be started at all.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	result := &Result{StartedAt: time.Now()}
	err := cmd.Run()
	result.Duration = time.Since(result.StartedAt)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.ExitCode = -1
			result.TimedOut = true
			return result, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	return result, nil
}

// JobFunc adapts a command to a scheduler job. The job settles with the
// *Result on success, or with an *ExitError if the command failed or timed
// out.
func (r *Runner) JobFunc(name, command string, timeout time.Duration) scheduler.Func {
	log := r.logger.With().Str("job", name).Logger()

	return func(ctx context.Context, _ ...interface{}) (interface{}, error) {
		future := scheduler.NewFuture()
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()

			log.Debug().Str("command", command).Msg("command started")
			result, err := r.Run(ctx, command, timeout)
			switch {
			case err != nil:
				future.Reject(fmt.Errorf("job %s: %w", name, err))
			case result.TimedOut || result.ExitCode != 0:
				log.Debug().Str("stderr", result.Stderr).Msg("command output")
				future.Reject(&ExitError{Job: name, Result: result})
			default:
				future.Resolve(result)
			}
		}()
		return future, nil
	}
}

// Wait blocks until every command started through JobFunc has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}
