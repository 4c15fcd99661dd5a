// Package config loads the cronflow daemon configuration from YAML.
//
// A configuration names the scheduler, sets up logging and metrics, and
// lists the jobs to run. Each job runs a shell command on one of three
// schedules, chosen by which of cron, interval or at is set:
//
//	name: backups
//	timezone: Europe/London
//	jobs:
//	  - name: nightly
//	    cron: "30 2 * * *"
//	    command: /usr/local/bin/backup.sh
//	    timeout: 1h
//	  - name: warmup
//	    interval: 5m
//	    max_runs: 3
//	    command: curl -fsS http://localhost:8080/warm
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"

	"github.com/vnykmshr/cronflow/internal/logging"
	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/cronexpr"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

// DefaultConfigPath is where the daemon looks when no path is given.
const DefaultConfigPath = "cronflow.yaml"

// Config is the daemon configuration. Fields are tagged for both koanf
// (loading) and yaml (saving). Durations are Go duration strings.
type Config struct {
	// Name labels logs and metrics. Default: "cronflow".
	Name string `koanf:"name" yaml:"name"`

	// LogLevel is one of trace, debug, info, warn, error. Default: "info".
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat is "console" or "json". Default: "console".
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// Timezone is an IANA zone name cron jobs are evaluated in, or
	// "Local". Default: "Local".
	Timezone string `koanf:"timezone" yaml:"timezone"`

	// MetricsAddr is the listen address of the Prometheus endpoint. Empty
	// disables it.
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr,omitempty"`

	// MinDelay is the shortest timer delay. Empty uses the scheduler default.
	MinDelay string `koanf:"min_delay" yaml:"min_delay,omitempty"`

	Jobs []JobConfig `koanf:"jobs" yaml:"jobs"`
}

// JobConfig describes one job. Exactly one of Cron, Interval and At must
// be set.
type JobConfig struct {
	Name     string `koanf:"name" yaml:"name"`
	Cron     string `koanf:"cron" yaml:"cron,omitempty"`
	Interval string `koanf:"interval" yaml:"interval,omitempty"`
	At       string `koanf:"at" yaml:"at,omitempty"`

	// MaxRuns bounds an interval job. Zero means unbounded.
	MaxRuns int `koanf:"max_runs" yaml:"max_runs,omitempty"`

	// Command is run with sh -c.
	Command string `koanf:"command" yaml:"command"`

	// Timeout kills the command after the given duration. Empty means no
	// limit.
	Timeout string `koanf:"timeout" yaml:"timeout,omitempty"`
}

// Load reads configuration from the YAML file at path, applies defaults
// and validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := goyaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}

// Sample returns the configuration written by "cronflow init".
func Sample() *Config {
	cfg := &Config{
		Name:        "cronflow",
		MetricsAddr: ":9090",
		Jobs: []JobConfig{
			{Name: "heartbeat", Interval: "1m", Command: "date"},
			{Name: "weekday-report", Cron: "0 9 * * mon-fri", Command: "echo report", Timeout: "5m"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "cronflow"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Validate checks the whole configuration and returns the first problem.
func (c *Config) Validate() error {
	if !logging.ValidFormat(c.LogFormat) {
		return cferrors.NewValidationError("config", "log_format", c.LogFormat, "unknown format").
			WithHint("use console or json")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.MinDelayDuration(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i := range c.Jobs {
		job := &c.Jobs[i]
		if job.Name == "" {
			return cferrors.NewValidationError("config", fmt.Sprintf("jobs[%d].name", i), "", "cannot be empty")
		}
		if seen[job.Name] {
			return cferrors.NewValidationError("config", fmt.Sprintf("jobs[%d].name", i), job.Name, "duplicate job name")
		}
		seen[job.Name] = true

		if err := job.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, cferrors.NewValidationError("config", "timezone", c.Timezone, err.Error())
	}
	return loc, nil
}

// MinDelayDuration parses MinDelay. Empty yields zero.
func (c *Config) MinDelayDuration() (time.Duration, error) {
	return parseDuration("min_delay", c.MinDelay)
}

func (j *JobConfig) validate() error {
	field := func(name string) string { return "jobs." + j.Name + "." + name }

	if j.Command == "" {
		return cferrors.NewValidationError("config", field("command"), "", "cannot be empty")
	}

	set := 0
	for _, v := range []string{j.Cron, j.Interval, j.At} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return cferrors.NewValidationError("config", field("schedule"), set, "exactly one of cron, interval or at is required")
	}
	if j.MaxRuns < 0 {
		return cferrors.NewValidationError("config", field("max_runs"), j.MaxRuns, "cannot be negative")
	}
	if j.MaxRuns > 0 && j.Interval == "" {
		return cferrors.NewValidationError("config", field("max_runs"), j.MaxRuns, "only applies to interval jobs")
	}
	if _, err := parseDuration(field("timeout"), j.Timeout); err != nil {
		return err
	}
	_, err := j.Schedule()
	return err
}

// Schedule converts the job's schedule to a value scheduler.AddJob
// accepts: a *cronexpr.Expression, a scheduler.Interval or a time.Time.
func (j *JobConfig) Schedule() (interface{}, error) {
	switch {
	case j.Cron != "":
		expr, err := cronexpr.Parse(j.Cron)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", j.Name, err)
		}
		return expr, nil

	case j.Interval != "":
		every, err := parseDuration("jobs."+j.Name+".interval", j.Interval)
		if err != nil {
			return nil, err
		}
		if every <= 0 {
			return nil, cferrors.NewValidationError("config", "jobs."+j.Name+".interval", j.Interval, "must be positive")
		}
		return scheduler.Interval{Every: every, MaxRuns: j.MaxRuns}, nil

	default:
		at, err := time.Parse(time.RFC3339, j.At)
		if err != nil {
			return nil, cferrors.NewValidationError("config", "jobs."+j.Name+".at", j.At, "not an RFC 3339 timestamp")
		}
		return at, nil
	}
}

// TimeoutDuration parses Timeout. Empty yields zero.
func (j *JobConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration("timeout", j.Timeout)
	return d
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, cferrors.NewValidationError("config", field, value, "not a duration").
			WithHint("use a Go duration such as 90s or 5m")
	}
	if d < 0 {
		return 0, cferrors.NewValidationError("config", field, value, "cannot be negative")
	}
	return d, nil
}
