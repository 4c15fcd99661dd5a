package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cronflow"

// DefaultDurationBuckets covers job runs from 10ms to roughly 45 minutes.
// Shell commands started by the daemon run far longer than
// prometheus.DefBuckets allows for.
var DefaultDurationBuckets = prometheus.ExponentialBuckets(0.01, 4, 9)

// Config controls how a Registry registers its collectors.
type Config struct {
	// Enabled set to false makes NewRegistryWithConfig return nil.
	Enabled bool

	// Registry receives the collectors. Nil means prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace replaces DefaultNamespace.
	Namespace string

	// Labels are constant labels attached to every metric, e.g. the host
	// a daemon runs on.
	Labels prometheus.Labels

	// DurationBuckets are the job_duration_seconds histogram bounds.
	// Empty means DefaultDurationBuckets.
	DurationBuckets []float64
}

// DefaultConfig returns an enabled configuration on the default registerer.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Registry:        prometheus.DefaultRegisterer,
		Namespace:       DefaultNamespace,
		DurationBuckets: DefaultDurationBuckets,
	}
}

func (c Config) withDefaults() Config {
	if c.Registry == nil {
		c.Registry = prometheus.DefaultRegisterer
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if len(c.DurationBuckets) == 0 {
		c.DurationBuckets = DefaultDurationBuckets
	}
	return c
}
