/*
Package cronflow schedules work on cron, interval and one-shot timers over
a single event loop.

Cron expressions (pkg/cronexpr):
  - Parse: five-field expressions with names, ranges, steps and shortcuts
  - Next: the next matching minute, in the location of the start instant

Scheduling (pkg/scheduling):
  - eventloop: single-goroutine loop with stoppable, resettable timers
  - scheduler: job registry with pause, resume, cancel and reschedule

Observability (pkg/metrics):
  - Prometheus counters, gauges and histograms for jobs and timers

Example usage:

	import (
		"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
		"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
	)

	loop := eventloop.New()
	s := scheduler.New(loop)

	s.AddCronJob("0 9 * * mon-fri", report)      // weekdays at 09:00
	s.AddIntervalJob(time.Minute, 0, heartbeat)  // every minute, forever
	s.AddDateJob(deadline, remind)               // once

The cronflow command (cmd/cronflow) runs shell commands from a YAML
configuration on top of these packages.
*/
package cronflow
