// Package metrics provides Prometheus instrumentation for cronflow schedulers.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for cronflow schedulers. A nil
// *Registry is valid and records nothing.
type Registry struct {
	// Job lifecycle
	JobsAdded      *prometheus.CounterVec
	JobsRemoved    *prometheus.CounterVec
	JobsRegistered *prometheus.GaugeVec
	JobsPaused     *prometheus.GaugeVec

	// Executions
	JobsExecuted      *prometheus.CounterVec
	JobsSucceeded     *prometheus.CounterVec
	JobsFailed        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec

	// Timers
	TimersArmed *prometheus.CounterVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	cfg.Registry = reg
	return NewRegistryWithConfig(cfg)
}

// NewRegistryWithConfig creates a registry from config. It returns nil when
// metrics are disabled.
func NewRegistryWithConfig(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	config = config.withDefaults()

	factory := promauto.With(config.Registry)
	ns, labels := config.Namespace, config.Labels

	return &Registry{
		JobsAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_added_total",
				Help:        "Total number of jobs added",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		JobsRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_removed_total",
				Help:        "Total number of jobs removed from the registry",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		JobsRegistered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_registered",
				Help:        "Number of jobs currently registered",
				ConstLabels: labels,
			},
			[]string{"scheduler_name"},
		),

		JobsPaused: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_paused",
				Help:        "Number of registered jobs that are paused",
				ConstLabels: labels,
			},
			[]string{"scheduler_name"},
		),

		JobsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_executed_total",
				Help:        "Total number of job executions started",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		JobsSucceeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_succeeded_total",
				Help:        "Total number of job executions that succeeded",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		JobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "jobs_failed_total",
				Help:        "Total number of job executions that failed",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "job_duration_seconds",
				Help:        "Time from job start to completion",
				Buckets:     config.DurationBuckets,
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "kind"},
		),

		TimersArmed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "timers_armed_total",
				Help:        "Total number of timer arms, split by new timers and resets",
				ConstLabels: labels,
			},
			[]string{"scheduler_name", "mode"},
		),
	}
}

// JobAdded records a job registration.
func (r *Registry) JobAdded(scheduler, kind string) {
	if r == nil {
		return
	}
	r.JobsAdded.WithLabelValues(scheduler, kind).Inc()
	r.JobsRegistered.WithLabelValues(scheduler).Inc()
}

// JobRemoved records a job leaving the registry.
func (r *Registry) JobRemoved(scheduler, kind string) {
	if r == nil {
		return
	}
	r.JobsRemoved.WithLabelValues(scheduler, kind).Inc()
	r.JobsRegistered.WithLabelValues(scheduler).Dec()
}

// SetPaused sets the paused job gauge.
func (r *Registry) SetPaused(scheduler string, n int) {
	if r == nil {
		return
	}
	r.JobsPaused.WithLabelValues(scheduler).Set(float64(n))
}

// ExecutionStarted records the start of a job run.
func (r *Registry) ExecutionStarted(scheduler, kind string) {
	if r == nil {
		return
	}
	r.JobsExecuted.WithLabelValues(scheduler, kind).Inc()
}

// ExecutionFinished records the outcome and duration of a job run.
func (r *Registry) ExecutionFinished(scheduler, kind string, d time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.JobsFailed.WithLabelValues(scheduler, kind).Inc()
	} else {
		r.JobsSucceeded.WithLabelValues(scheduler, kind).Inc()
	}
	r.ExecutionDuration.WithLabelValues(scheduler, kind).Observe(d.Seconds())
}

// TimerArmed records a timer being armed. reset is true when an existing
// timer was rearmed instead of a new one being created.
func (r *Registry) TimerArmed(scheduler string, reset bool) {
	if r == nil {
		return
	}
	mode := "new"
	if reset {
		mode = "reset"
	}
	r.TimersArmed.WithLabelValues(scheduler, mode).Inc()
}
