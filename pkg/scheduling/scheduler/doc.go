// Package scheduler runs jobs on an event loop according to one of three
// schedule kinds:
//
//   - cron jobs fire at every occurrence of a five-field cron expression,
//     evaluated in the scheduler's Location;
//   - interval jobs fire immediately and then every fixed period, optionally
//     a bounded number of times;
//   - date jobs fire once at a given instant.
//
// Each job owns at most one armed timer. After an execution, the job's
// callbacks (or errbacks, if it failed) run in registration order and then
// the job is rearmed at its next execution or, once it has nothing left to
// do, removed from the scheduler.
//
// Basic usage:
//
//	loop := eventloop.New()
//	s := scheduler.New(loop)
//
//	job, err := s.AddJob("*/5 * * * *", func(ctx context.Context, args ...interface{}) (interface{}, error) {
//		return fetch(ctx, args[0].(string))
//	}, "https://example.com/feed")
//	if err != nil {
//		return err
//	}
//	job.AddErrback(func(err error, _ ...interface{}) {
//		log.Printf("fetch failed: %v", err)
//	})
//
// AddJob picks the kind from the schedule's type: a string or
// *cronexpr.Expression makes a cron job, a time.Duration or Interval an
// interval job, and a time.Time a date job.
//
// A job function that cannot finish on the loop may return a *Future and
// settle it later from any goroutine. The callbacks and the rearm wait for
// it without blocking the loop.
//
// Pause, Resume, Cancel and Reschedule are safe to call from any goroutine,
// including from inside a running job or one of its callbacks.
package scheduler
