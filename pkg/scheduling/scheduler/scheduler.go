package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
	"github.com/vnykmshr/cronflow/pkg/cronexpr"
	"github.com/vnykmshr/cronflow/pkg/metrics"
	"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
)

// Config holds scheduler configuration.
type Config struct {
	// Name identifies the scheduler in logs and metrics. Default: "default".
	Name string

	// Location is the time zone cron expressions are evaluated in.
	// Default: time.Local.
	Location *time.Location

	// MinDelay is the shortest delay a timer is ever armed with, so a job
	// that is already due cannot spin the loop. Default: 100ms.
	MinDelay time.Duration

	// MaxJobs caps the number of registered jobs. Default: 10000.
	MaxJobs int

	// Logger receives structured scheduler events. Nil discards them.
	Logger *zerolog.Logger

	// Metrics records scheduler metrics. Nil disables them.
	Metrics *metrics.Registry

	// Context is the parent of the context passed to job functions.
	// Default: context.Background().
	Context context.Context
}

const (
	defaultName     = "default"
	defaultMinDelay = 100 * time.Millisecond
	defaultMaxJobs  = 10000
)

// Scheduler keeps a registry of jobs and arms one timer per job on an
// event loop. Every Scheduler owns its id sequence, starting at 1.
type Scheduler struct {
	loop    eventloop.Loop
	config  Config
	logger  zerolog.Logger
	metrics *metrics.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	nextID int
	jobs   map[int]*Job
	closed bool
}

// New creates a scheduler on loop with default configuration.
// It panics if loop is nil.
func New(loop eventloop.Loop) *Scheduler {
	s, err := NewWithConfig(loop, Config{})
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithConfig creates a scheduler on loop with custom configuration.
func NewWithConfig(loop eventloop.Loop, cfg Config) (*Scheduler, error) {
	if err := validation.ValidateNotNil("scheduler", "loop", loop); err != nil {
		return nil, err
	}
	if cfg.MinDelay < 0 {
		return nil, cferrors.NewValidationError("scheduler", "MinDelay", cfg.MinDelay, "cannot be negative").
			WithHint("use 0 for the default of 100ms")
	}
	if err := validation.ValidateNonNegative("scheduler", "MaxJobs", cfg.MaxJobs); err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = defaultMinDelay
	}
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = defaultMaxJobs
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().
			Str("component", "scheduler").
			Str("scheduler", cfg.Name).
			Logger()
	}

	ctx, cancel := context.WithCancel(cfg.Context)
	return &Scheduler{
		loop:    loop,
		config:  cfg,
		logger:  logger,
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[int]*Job),
	}, nil
}

// Name returns the configured scheduler name.
func (s *Scheduler) Name() string { return s.config.Name }

// AddJob registers fn under a schedule whose shape picks the job kind:
//
//   - time.Duration or Interval: an interval job, first run immediately
//   - time.Time: a date job, run once at that instant
//   - string or *cronexpr.Expression: a cron job
//
// Any other shape is a ValidationError. The job is armed before AddJob
// returns.
func (s *Scheduler) AddJob(schedule interface{}, fn Func, args ...interface{}) (*Job, error) {
	if err := validation.ValidateNotNil("scheduler", "fn", fn); err != nil {
		return nil, err
	}

	now := s.loop.Now()
	job := &Job{sched: s, fn: fn, args: args}

	switch v := schedule.(type) {
	case time.Duration, Interval:
		every, maxRuns, err := parseInterval(v, 0)
		if err != nil {
			return nil, err
		}
		job.kind = KindInterval
		job.interval, job.maxRuns = every, maxRuns
		job.nextExec = now

	case time.Time:
		if err := validation.ValidateNotZeroTime("scheduler", "schedule", v); err != nil {
			return nil, err
		}
		job.kind = KindDate
		job.runAt, job.nextExec = v, v

	case string, *cronexpr.Expression:
		expr, err := s.parseCron(v)
		if err != nil {
			return nil, err
		}
		next, err := expr.Next(now.In(s.config.Location))
		if err != nil {
			return nil, err
		}
		job.kind = KindCron
		job.expr, job.nextExec = expr, next

	default:
		return nil, cferrors.NewValidationError("scheduler", "schedule", schedule,
			fmt.Sprintf("unsupported schedule type %T", schedule)).
			WithHint("use a time.Duration, Interval, time.Time or cron expression")
	}

	if err := s.register(job); err != nil {
		return nil, err
	}

	s.metrics.JobAdded(s.config.Name, job.kind.String())
	job.log.Info().Time("next", job.NextExecTime()).Msg("job added")

	s.scheduleJob(job)
	return job, nil
}

// AddCronJob registers fn to run at every occurrence of a cron expression.
func (s *Scheduler) AddCronJob(spec string, fn Func, args ...interface{}) (*Job, error) {
	return s.AddJob(spec, fn, args...)
}

// AddIntervalJob registers fn to run now and then every interval. A
// maxRuns of zero repeats forever; otherwise the job is removed after
// maxRuns executions.
func (s *Scheduler) AddIntervalJob(every time.Duration, maxRuns int, fn Func, args ...interface{}) (*Job, error) {
	return s.AddJob(Interval{Every: every, MaxRuns: maxRuns}, fn, args...)
}

// AddDateJob registers fn to run once at the given instant. An instant in
// the past runs after MinDelay.
func (s *Scheduler) AddDateJob(at time.Time, fn Func, args ...interface{}) (*Job, error) {
	return s.AddJob(at, fn, args...)
}

// RemoveJob cancels a job and removes it from the registry.
func (s *Scheduler) RemoveJob(id int) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if !ok {
		return notFound("RemoveJob", id)
	}

	job.Cancel()
	s.metrics.JobRemoved(s.config.Name, job.kind.String())
	s.refreshPaused()
	job.log.Info().Msg("job removed")
	return nil
}

// CancelJob cancels a job. It stays registered until removed.
func (s *Scheduler) CancelJob(id int) error {
	job, ok := s.GetJob(id)
	if !ok {
		return notFound("CancelJob", id)
	}
	job.Cancel()
	return nil
}

// PauseJob pauses a job.
func (s *Scheduler) PauseJob(id int) error {
	job, ok := s.GetJob(id)
	if !ok {
		return notFound("PauseJob", id)
	}
	job.Pause()
	return nil
}

// ResumeJob resumes a paused job.
func (s *Scheduler) ResumeJob(id int) error {
	job, ok := s.GetJob(id)
	if !ok {
		return notFound("ResumeJob", id)
	}
	return job.Resume()
}

// GetJob returns the job with the given id. The second result is false
// if no such job is registered.
func (s *Scheduler) GetJob(id int) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Jobs returns a snapshot of every registered job, ordered by id.
func (s *Scheduler) Jobs() []*Job {
	return s.snapshot(func(*Job) bool { return true })
}

// PausedJobs returns a snapshot of the paused jobs, ordered by id.
func (s *Scheduler) PausedJobs() []*Job {
	return s.snapshot((*Job).Paused)
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Shutdown cancels every job, empties the registry and cancels the
// context handed to job functions. Later calls to AddJob fail with
// ErrClosed.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.jobs = make(map[int]*Job)
	s.mu.Unlock()

	for _, job := range jobs {
		job.Cancel()
		s.metrics.JobRemoved(s.config.Name, job.kind.String())
	}
	s.metrics.SetPaused(s.config.Name, 0)
	s.cancel()
	s.logger.Info().Int("jobs", len(jobs)).Msg("scheduler shut down")
}

// scheduleJob arms the job's timer for its next execution, resetting the
// existing timer if it is still pending so that a job never has two live
// timers. Jobs that are not active are left disarmed.
func (s *Scheduler) scheduleJob(job *Job) {
	delay := job.NextExecutionDelay()

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.state != StateActive {
		return
	}

	reset := job.timer != nil && job.timer.Active()
	if reset {
		job.timer.Reset(delay)
	} else {
		job.timer = s.loop.AfterFunc(delay, job.fire)
	}
	s.metrics.TimerArmed(s.config.Name, reset)
	job.log.Debug().Dur("delay", delay).Bool("reset", reset).Msg("timer armed")
}

func (s *Scheduler) register(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cferrors.NewOperationError("scheduler", "AddJob", cferrors.ErrClosed)
	}
	if len(s.jobs) >= s.config.MaxJobs {
		return cferrors.NewOperationError("scheduler", "AddJob", cferrors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("max jobs %d", s.config.MaxJobs))
	}

	s.nextID++
	job.id = s.nextID
	job.log = s.logger.With().Int("job_id", job.id).Str("kind", job.kind.String()).Logger()
	s.jobs[job.id] = job
	return nil
}

// removeFinished removes a job that ended on its own. The job may already
// be gone if it was removed while it was running.
func (s *Scheduler) removeFinished(job *Job) {
	s.mu.Lock()
	current, ok := s.jobs[job.id]
	if ok && current == job {
		delete(s.jobs, job.id)
	}
	s.mu.Unlock()

	job.Cancel()
	if ok && current == job {
		s.metrics.JobRemoved(s.config.Name, job.kind.String())
		s.refreshPaused()
		job.log.Info().Int("runs", job.TimesExecuted()).Msg("job removed")
	}
}

func (s *Scheduler) refreshPaused() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetPaused(s.config.Name, len(s.PausedJobs()))
}

func (s *Scheduler) snapshot(keep func(*Job) bool) []*Job {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	s.mu.RUnlock()

	filtered := out[:0]
	for _, job := range out {
		if keep(job) {
			filtered = append(filtered, job)
		}
	}
	sort.Slice(filtered, func(a, b int) bool { return filtered[a].id < filtered[b].id })
	return filtered
}

// parseCron accepts cron text or an already parsed expression.
func (s *Scheduler) parseCron(schedule interface{}) (*cronexpr.Expression, error) {
	switch v := schedule.(type) {
	case string:
		return cronexpr.Parse(v)
	case *cronexpr.Expression:
		if v == nil {
			return nil, cferrors.NewValidationError("scheduler", "schedule", nil, "cannot be nil")
		}
		return v, nil
	default:
		return nil, scheduleMismatch(KindCron, schedule)
	}
}
