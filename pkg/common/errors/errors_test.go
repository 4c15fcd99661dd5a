package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "interval",
			err:  NewValidationError("scheduler", "interval", -1, "must be positive"),
			want: "scheduler: invalid interval=-1 (must be positive)",
		},
		{
			name: "max runs with hint",
			err: NewValidationError("scheduler", "max_runs", -2, "cannot be negative").
				WithHint("use 0 for an unbounded job"),
			want: "scheduler: invalid max_runs=-2 (cannot be negative) - use 0 for an unbounded job",
		},
		{
			name: "empty expression",
			err:  NewValidationError("cronexpr", "expression", "", "cannot be empty"),
			want: "cronexpr: invalid expression= (cannot be empty)",
		},
		{
			name: "config duration",
			err: NewValidationError("config", "jobs.backup.timeout", "forever", "not a duration").
				WithHint("use a Go duration such as 90s or 5m"),
			want: "config: invalid jobs.backup.timeout=forever (not a duration) - use a Go duration such as 90s or 5m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidConfiguration) {
				t.Error("ValidationError should match ErrInvalidConfiguration")
			}
		})
	}
}

func TestValidationError_WithHintChains(t *testing.T) {
	err := NewValidationError("scheduler", "schedule", 42, "unsupported type")
	if got := err.WithHint("pass a cron string, duration or time.Time"); got != err {
		t.Error("WithHint should return its receiver")
	}
	if err.Hint == "" {
		t.Error("hint not recorded")
	}
}

func TestOperationError_Error(t *testing.T) {
	jobNotFound := fmt.Errorf("job %w", ErrNotFound)

	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "without context",
			err:  NewOperationError("eventloop", "Go", ErrClosed),
			want: "eventloop.Go failed: resource is closed",
		},
		{
			name: "with context",
			err:  NewOperationError("scheduler", "PauseJob", jobNotFound).WithContext("id=7"),
			want: "scheduler.PauseJob failed: job not found (id=7)",
		},
		{
			name: "capacity",
			err:  NewOperationError("scheduler", "AddJob", ErrCapacityExceeded).WithContext("max_jobs=2"),
			want: "scheduler.AddJob failed: capacity exceeded (max_jobs=2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Cause) {
				t.Error("OperationError should unwrap to its cause")
			}
		})
	}
}

func TestOperationError_WithContextChains(t *testing.T) {
	err := NewOperationError("scheduler", "ResumeJob", ErrCancelled)
	if got := err.WithContext("id=3"); got != err {
		t.Error("WithContext should return its receiver")
	}
	if err.Context != "id=3" {
		t.Errorf("Context = %q, want id=3", err.Context)
	}
}

func TestPredicates(t *testing.T) {
	invalid := NewValidationError("scheduler", "interval", 0, "must be positive")
	missing := NewOperationError("scheduler", "CancelJob", fmt.Errorf("job 3: %w", ErrNotFound))

	tests := []struct {
		name           string
		err            error
		wantValidation bool
		wantNotFound   bool
	}{
		{"validation", invalid, true, false},
		{"wrapped validation", fmt.Errorf("job backup: %w", invalid), true, false},
		{"validation inside operation", NewOperationError("scheduler", "AddJob", invalid), true, false},
		{"not found sentinel", ErrNotFound, false, true},
		{"wrapped not found", missing, false, true},
		{"cancelled", ErrCancelled, false, false},
		{"bare invalid configuration", ErrInvalidConfiguration, false, false},
		{"plain", errors.New("exit status 1"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.wantValidation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.wantValidation)
			}
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.wantNotFound)
			}
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrClosed, ErrTimeout, ErrCapacityExceeded, ErrInvalidConfiguration,
		ErrInvalidExpression, ErrNotFound, ErrCancelled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
