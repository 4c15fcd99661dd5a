package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vnykmshr/cronflow/internal/testutil"
)

// epoch is a Monday.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *testutil.FakeLoop) {
	t.Helper()
	loop := testutil.NewFakeLoop(epoch)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s, err := NewWithConfig(loop, cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s, loop
}

// recorder is a job function that records the loop time of each run.
type recorder struct {
	loop *testutil.FakeLoop
	runs []time.Time
	err  error
}

func (r *recorder) fn(_ context.Context, _ ...interface{}) (interface{}, error) {
	r.runs = append(r.runs, r.loop.Now())
	return len(r.runs), r.err
}

func noop(context.Context, ...interface{}) (interface{}, error) { return nil, nil }

func ids(jobs []*Job) []int {
	out := make([]int, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID())
	}
	return out
}
