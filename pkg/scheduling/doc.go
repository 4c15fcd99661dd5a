/*
Package scheduling groups the timer machinery of cronflow.

  - eventloop: the host loop jobs run on, with one-shot timers
  - scheduler: cron, interval and date jobs armed on a loop

Every job callback runs on the loop goroutine, one at a time, so job state
never needs locking from inside a job. Work that must not block the loop
returns a scheduler.Future and finishes elsewhere:

	loop := eventloop.New()
	defer func() { <-loop.Shutdown() }()

	s := scheduler.New(loop)
	defer s.Shutdown()

	s.AddIntervalJob(time.Hour, 0, func(ctx context.Context, _ ...interface{}) (interface{}, error) {
		f := scheduler.NewFuture()
		go func() {
			body, err := fetch(ctx)
			if err != nil {
				f.Reject(err)
				return
			}
			f.Resolve(body)
		}()
		return f, nil
	})
*/
package scheduling
