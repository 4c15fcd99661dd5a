package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
	"github.com/vnykmshr/cronflow/pkg/cronexpr"
	"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
)

// Kind identifies how a job computes its next execution.
type Kind int

const (
	// KindCron runs at every occurrence of a cron expression.
	KindCron Kind = iota + 1

	// KindInterval runs immediately and then every fixed interval,
	// optionally a bounded number of times.
	KindInterval

	// KindDate runs once at a given instant.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindCron:
		return "cron"
	case KindInterval:
		return "interval"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is a job's lifecycle state. Cancelled is terminal.
type State int

const (
	StateActive State = iota
	StatePaused
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Func is the work a job runs. ctx is cancelled when the scheduler shuts
// down. Returning a *Future as the result defers the job's callbacks until
// that future settles.
type Func func(ctx context.Context, args ...interface{}) (interface{}, error)

// Callback receives the result of a successful execution.
type Callback func(result interface{}, args ...interface{})

// Errback receives the error of a failed execution.
type Errback func(err error, args ...interface{})

// Interval is the schedule shape for interval jobs. A MaxRuns of zero
// means the job repeats until it is cancelled or removed.
type Interval struct {
	Every   time.Duration
	MaxRuns int
}

type callbackEntry struct {
	fn   Callback
	args []interface{}
}

type errbackEntry struct {
	fn   Errback
	args []interface{}
}

// Job is a scheduled unit of work. Jobs are created by a Scheduler and are
// safe for concurrent use.
type Job struct {
	id    int
	kind  Kind
	sched *Scheduler
	fn    Func
	args  []interface{}
	log   zerolog.Logger

	mu            sync.Mutex
	state         State
	expr          *cronexpr.Expression
	interval      time.Duration
	maxRuns       int
	runAt         time.Time
	nextExec      time.Time
	lastExec      time.Time
	timesExecuted int
	timer         eventloop.Timer
	callbacks     []callbackEntry
	errbacks      []errbackEntry
}

// ID returns the job id, unique within its scheduler.
func (j *Job) ID() int { return j.id }

// Kind returns the job kind.
func (j *Job) Kind() Kind { return j.kind }

// Args returns a copy of the arguments passed to the job function.
func (j *Job) Args() []interface{} {
	return append([]interface{}(nil), j.args...)
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Paused reports whether the job is paused.
func (j *Job) Paused() bool { return j.State() == StatePaused }

// Cancelled reports whether the job has been cancelled.
func (j *Job) Cancelled() bool { return j.State() == StateCancelled }

// NextExecTime returns when the job is next due.
func (j *Job) NextExecTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextExec
}

// LastExecTime returns when the job last started, or the zero time.
func (j *Job) LastExecTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastExec
}

// TimesExecuted returns how many times the job has started.
func (j *Job) TimesExecuted() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.timesExecuted
}

// Expression returns the cron expression of a cron job, or nil.
func (j *Job) Expression() *cronexpr.Expression {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.expr
}

// Spec returns the cron text of a cron job, or "".
func (j *Job) Spec() string {
	if e := j.Expression(); e != nil {
		return e.Text()
	}
	return ""
}

// Interval returns the period of an interval job, or zero.
func (j *Job) Interval() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.interval
}

// MaxRuns returns the iteration bound of an interval job; zero means
// unbounded.
func (j *Job) MaxRuns() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.maxRuns
}

// RunAt returns the target instant of a date job, or the zero time.
func (j *Job) RunAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runAt
}

func (j *Job) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.kind {
	case KindCron:
		return fmt.Sprintf("job %d (cron %q)", j.id, j.expr.Text())
	case KindInterval:
		return fmt.Sprintf("job %d (every %s)", j.id, j.interval)
	default:
		return fmt.Sprintf("job %d (at %s)", j.id, j.runAt.Format(time.RFC3339))
	}
}

// AddCallback appends fn to the callbacks run after each successful
// execution, in registration order.
func (j *Job) AddCallback(fn Callback, args ...interface{}) error {
	if err := validation.ValidateNotNil("scheduler", "callback", fn); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.callbacks = append(j.callbacks, callbackEntry{fn: fn, args: args})
	return nil
}

// AddErrback appends fn to the errbacks run after each failed execution,
// in registration order.
func (j *Job) AddErrback(fn Errback, args ...interface{}) error {
	if err := validation.ValidateNotNil("scheduler", "errback", fn); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errbacks = append(j.errbacks, errbackEntry{fn: fn, args: args})
	return nil
}

// NextExecutionDelay returns the time left until the next execution,
// never less than the scheduler's MinDelay.
func (j *Job) NextExecutionDelay() time.Duration {
	j.mu.Lock()
	next := j.nextExec
	j.mu.Unlock()

	d := next.Sub(j.sched.loop.Now())
	if d < j.sched.config.MinDelay {
		d = j.sched.config.MinDelay
	}
	return d
}

// Pause stops the job from running until Resume. Pausing a cancelled job
// does nothing.
func (j *Job) Pause() {
	j.mu.Lock()
	if j.state != StateActive {
		j.mu.Unlock()
		return
	}
	j.state = StatePaused
	j.stopTimerLocked()
	j.mu.Unlock()

	j.log.Debug().Msg("job paused")
	j.sched.refreshPaused()
}

// Resume reactivates a paused job and arms it from its current schedule.
// A cron job skips the occurrences that passed while it was paused.
// Resuming an active job rearms it in place.
func (j *Job) Resume() error {
	j.mu.Lock()
	if j.state == StateCancelled {
		j.mu.Unlock()
		return cancelled("Resume", j.id)
	}
	j.state = StateActive
	var err error
	if j.kind == KindCron {
		err = j.recomputeCronLocked()
	}
	j.mu.Unlock()

	if err != nil {
		j.log.Warn().Err(err).Msg("cron expression has no future occurrence, removing job")
		j.sched.removeFinished(j)
		return err
	}

	j.log.Debug().Msg("job resumed")
	j.sched.refreshPaused()
	j.sched.scheduleJob(j)
	return nil
}

// Cancel stops the job for good. Cancelling twice, or after the timer has
// fired, is harmless. A cancelled job stays registered until removed.
func (j *Job) Cancel() {
	j.mu.Lock()
	if j.state == StateCancelled {
		j.mu.Unlock()
		return
	}
	wasPaused := j.state == StatePaused
	j.state = StateCancelled
	j.stopTimerLocked()
	j.mu.Unlock()

	j.log.Debug().Msg("job cancelled")
	if wasPaused {
		j.sched.refreshPaused()
	}
}

// Reschedule replaces the job's schedule and rearms it at the new next
// execution. The schedule must match the job kind: a cron string or
// *cronexpr.Expression for cron jobs, a time.Duration or Interval for
// interval jobs, and a time.Time for date jobs. A paused job keeps its new
// schedule and is armed when resumed.
func (j *Job) Reschedule(schedule interface{}) error {
	if j.Cancelled() {
		return cancelled("Reschedule", j.id)
	}

	now := j.sched.loop.Now()
	switch j.kind {
	case KindCron:
		expr, err := j.sched.parseCron(schedule)
		if err != nil {
			return err
		}
		next, err := expr.Next(now.In(j.sched.config.Location))
		if err != nil {
			return err
		}
		j.mu.Lock()
		j.expr, j.nextExec = expr, next
		j.mu.Unlock()

	case KindInterval:
		j.mu.Lock()
		maxRuns := j.maxRuns
		j.mu.Unlock()

		every, bound, err := parseInterval(schedule, maxRuns)
		if err != nil {
			return err
		}
		j.mu.Lock()
		j.interval, j.maxRuns = every, bound
		if j.timesExecuted > 0 {
			j.nextExec = j.lastExec.Add(every)
		} else {
			j.nextExec = now
		}
		j.mu.Unlock()

	case KindDate:
		at, ok := schedule.(time.Time)
		if !ok {
			return scheduleMismatch(j.kind, schedule)
		}
		if err := validation.ValidateNotZeroTime("scheduler", "schedule", at); err != nil {
			return err
		}
		j.mu.Lock()
		j.runAt, j.nextExec = at, at
		j.mu.Unlock()
	}

	j.log.Debug().Time("next", j.NextExecTime()).Msg("job rescheduled")
	j.sched.scheduleJob(j)
	return nil
}

// Execute runs the job now: it records the start, calls the job function
// and passes the outcome through the callbacks or errbacks, then through
// the completion step that rearms or removes the job. The returned future
// settles with the function's outcome once all of that has happened.
//
// If the function returns a *Future, the rest of the chain resumes on the
// scheduler's loop once that future settles.
func (j *Job) Execute() *Future {
	start := j.sched.loop.Now()
	j.mu.Lock()
	j.lastExec = start
	j.timesExecuted++
	run := j.timesExecuted
	j.mu.Unlock()

	j.sched.metrics.ExecutionStarted(j.sched.config.Name, j.kind.String())
	j.log.Debug().Int("run", run).Msg("job started")

	done := NewFuture()
	result, err := j.invoke()
	if pending, ok := result.(*Future); ok && pending != nil && err == nil {
		pending.onSettle(func() {
			j.sched.loop.AfterFunc(0, func() {
				value, perr := pending.Result()
				j.complete(start, value, perr, done)
			})
		})
		return done
	}

	j.complete(start, result, err, done)
	return done
}

func (j *Job) invoke() (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("job %d panicked: %v\nStack trace:\n%s", j.id, r, debug.Stack())
		}
	}()
	return j.fn(j.sched.ctx, j.args...)
}

func (j *Job) complete(start time.Time, value interface{}, err error, done *Future) {
	elapsed := j.sched.loop.Now().Sub(start)
	j.sched.metrics.ExecutionFinished(j.sched.config.Name, j.kind.String(), elapsed, err)
	if err != nil {
		j.log.Warn().Err(err).Dur("elapsed", elapsed).Msg("job failed")
	} else {
		j.log.Debug().Dur("elapsed", elapsed).Msg("job succeeded")
	}

	j.mu.Lock()
	callbacks := append([]callbackEntry(nil), j.callbacks...)
	errbacks := append([]errbackEntry(nil), j.errbacks...)
	j.mu.Unlock()

	if err == nil {
		for i, cb := range callbacks {
			j.guard("callback", i, func() { cb.fn(value, cb.args...) })
		}
	} else {
		for i, eb := range errbacks {
			j.guard("errback", i, func() { eb.fn(err, eb.args...) })
		}
	}

	j.afterExecution()

	if err != nil {
		done.Reject(err)
	} else {
		done.Resolve(value)
	}
}

// guard runs a user callback and logs a panic instead of letting it unwind
// through the event loop.
func (j *Job) guard(what string, index int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().
				Str("hook", what).
				Int("index", index).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job hook panicked")
		}
	}()
	fn()
}

// afterExecution is the completion step. It is the only place a job is
// rearmed or removed after running.
func (j *Job) afterExecution() {
	now := j.sched.loop.Now()

	j.mu.Lock()
	if j.state == StateCancelled {
		j.mu.Unlock()
		return
	}

	var remove bool
	var err error
	switch j.kind {
	case KindCron:
		err = j.recomputeCronFromLocked(now)
		remove = err != nil
	case KindInterval:
		j.nextExec = j.lastExec.Add(j.interval)
		remove = j.maxRuns > 0 && j.timesExecuted >= j.maxRuns
	case KindDate:
		remove = true
	}
	active := j.state == StateActive
	j.mu.Unlock()

	if remove {
		if err != nil {
			j.log.Warn().Err(err).Msg("cron expression has no future occurrence, removing job")
		} else {
			j.log.Debug().Msg("job finished, removing")
		}
		j.sched.removeFinished(j)
		return
	}
	if active {
		j.sched.scheduleJob(j)
	}
}

func (j *Job) recomputeCronLocked() error {
	return j.recomputeCronFromLocked(j.sched.loop.Now())
}

func (j *Job) recomputeCronFromLocked(now time.Time) error {
	next, err := j.expr.Next(now.In(j.sched.config.Location))
	if err != nil {
		return err
	}
	j.nextExec = next
	return nil
}

// stopTimerLocked disarms the outstanding timer. A timer that already
// fired or was already stopped is fine.
func (j *Job) stopTimerLocked() {
	if j.timer != nil {
		j.timer.Stop()
	}
}

// fire is the timer callback.
func (j *Job) fire() {
	j.Execute()
}

func parseInterval(schedule interface{}, maxRuns int) (time.Duration, int, error) {
	switch v := schedule.(type) {
	case time.Duration:
		if err := validation.ValidatePositiveDuration("scheduler", "interval", v); err != nil {
			return 0, 0, err
		}
		return v, maxRuns, nil
	case Interval:
		if err := validation.ValidatePositiveDuration("scheduler", "interval", v.Every); err != nil {
			return 0, 0, err
		}
		if err := validation.ValidateNonNegative("scheduler", "MaxRuns", v.MaxRuns); err != nil {
			return 0, 0, err
		}
		return v.Every, v.MaxRuns, nil
	default:
		return 0, 0, scheduleMismatch(KindInterval, schedule)
	}
}

func scheduleMismatch(kind Kind, schedule interface{}) error {
	return cferrors.NewValidationError("scheduler", "schedule", schedule,
		fmt.Sprintf("%T cannot reschedule a %s job", schedule, kind))
}
