package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vnykmshr/cronflow/internal/config"
	"github.com/vnykmshr/cronflow/internal/logging"
	"github.com/vnykmshr/cronflow/internal/runner"
	"github.com/vnykmshr/cronflow/internal/testutil"
	"github.com/vnykmshr/cronflow/pkg/cronexpr"
)

func TestRun_Commands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	if err := run(ctx, nil, &stdout, &stderr); err == nil {
		t.Error("run() with no command should fail")
	}
	if !strings.Contains(stderr.String(), "usage: cronflow") {
		t.Errorf("usage not printed:\n%s", stderr.String())
	}

	if err := run(ctx, []string{"frobnicate"}, &stdout, &stderr); err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("run(frobnicate) error = %v", err)
	}

	stdout.Reset()
	testutil.AssertNoError(t, run(ctx, []string{"help"}, &stdout, &stderr))
	if !strings.Contains(stdout.String(), "commands:") {
		t.Errorf("help output:\n%s", stdout.String())
	}
}

func TestNext(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := cmdNext([]string{"-n", "3", "-from", "2024-01-01T00:00:00Z", "-tz", "UTC", "-compare", "*/20", "*", "*", "*", "*"}, &stdout, &stderr)
	testutil.AssertNoError(t, err)

	want := strings.Join([]string{
		"0,20,40 * * * *\t*/20 * * * *",
		"2024-01-01T00:20:00Z\t2024-01-01T00:20:00Z",
		"2024-01-01T00:40:00Z\t2024-01-01T00:40:00Z",
		"2024-01-01T01:00:00Z\t2024-01-01T01:00:00Z",
	}, "\n") + "\n"
	testutil.AssertEqual(t, stdout.String(), want)
}

func TestNext_OrDayRule(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := cmdNext([]string{"-n", "4", "-from", "2024-01-01T00:00:00Z", "-tz", "UTC", "-compare", "0 0 15 * fri"}, &stdout, &stderr)
	testutil.AssertNoError(t, err)

	if strings.Contains(stdout.String(), "MISMATCH") {
		t.Errorf("occurrences disagree with robfig/cron:\n%s", stdout.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	testutil.AssertEqual(t, len(lines), 5)
	testutil.AssertEqual(t, strings.Fields(lines[1])[0], "2024-01-05T00:00:00Z")
	testutil.AssertEqual(t, strings.Fields(lines[2])[0], "2024-01-12T00:00:00Z")
	testutil.AssertEqual(t, strings.Fields(lines[3])[0], "2024-01-15T00:00:00Z")
}

func TestNext_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing expression", []string{}, nil},
		{"bad expression", []string{"61 * * * *"}, nil},
		{"bad zone", []string{"-tz", "Mars/Olympus", "* * * * *"}, nil},
		{"bad from", []string{"-from", "yesterday", "* * * * *"}, nil},
		{"never", []string{"-from", "2024-01-01T00:00:00Z", "0 0 30 2 *"}, cronexpr.ErrNoOccurrence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := cmdNext(tt.args, &stdout, &stderr)
			if err == nil {
				t.Fatal("cmdNext() should fail")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("cmdNext() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronflow.yaml")
	var stdout, stderr bytes.Buffer

	testutil.AssertNoError(t, cmdInit([]string{"-config", path}, &stdout, &stderr))
	if !strings.Contains(stdout.String(), "wrote "+path) {
		t.Errorf("init output: %s", stdout.String())
	}

	cfg, err := config.Load(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(cfg.Jobs), len(config.Sample().Jobs))

	if err := cmdInit([]string{"-config", path}, &stdout, &stderr); err == nil {
		t.Error("init should refuse to overwrite")
	}
	testutil.AssertNoError(t, cmdInit([]string{"-config", path, "-force"}, &stdout, &stderr))
}

func TestServe(t *testing.T) {
	if _, err := exec.LookPath(runner.DefaultShell); err != nil {
		t.Skipf("%s not available", runner.DefaultShell)
	}

	cfg := &config.Config{
		Name:        "test",
		LogLevel:    "info",
		LogFormat:   "json",
		Timezone:    "UTC",
		MetricsAddr: "127.0.0.1:0",
		MinDelay:    "1ms",
		Jobs: []config.JobConfig{
			{Name: "once", Interval: "1h", MaxRuns: 1, Command: "printf ok"},
			{Name: "fails", Interval: "1h", MaxRuns: 1, Command: "exit 4"},
			{Name: "nightly", Cron: "0 3 * * *", Command: "true"},
		},
	}
	testutil.AssertNoError(t, cfg.Validate())

	out := testutil.NewLogBuffer()
	logger := logging.NewWithWriter(out, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger) }()

	testutil.AssertEventually(t, func() bool {
		return out.Contains("command succeeded") && out.Contains("command failed")
	})
	if !out.Contains("metrics endpoint listening") || !out.Contains("cronflow started") {
		t.Errorf("startup not logged:\n%s", out.String())
	}
	if !out.Contains("job fails: exit status 4") {
		t.Errorf("failure not logged:\n%s", out.String())
	}

	cancel()
	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-func() <-chan struct{} {
		c, stop := testutil.WithTimeout(t)
		t.Cleanup(stop)
		return c.Done()
	}():
		t.Fatal("serve did not return after cancel")
	}
	if !out.Contains("cronflow shutting down") {
		t.Errorf("shutdown not logged:\n%s", out.String())
	}
}
