// Package metrics provides Prometheus instrumentation for cronflow schedulers.
//
// # Quick Start
//
// Pass a registry to the scheduler and expose it over HTTP:
//
//	reg := prometheus.NewRegistry()
//	s, err := scheduler.New(loop, scheduler.Config{
//		Name:    "jobs",
//		Metrics: metrics.NewRegistry(reg),
//	})
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// A nil *Registry is valid everywhere and records nothing, so components
// can call its methods without checking whether metrics are enabled.
//
// # Available Metrics
//
//   - cronflow_scheduler_jobs_added_total{scheduler_name,kind}
//   - cronflow_scheduler_jobs_removed_total{scheduler_name,kind}
//   - cronflow_scheduler_jobs_registered{scheduler_name}
//   - cronflow_scheduler_jobs_paused{scheduler_name}
//   - cronflow_scheduler_jobs_executed_total{scheduler_name,kind}
//   - cronflow_scheduler_jobs_succeeded_total{scheduler_name,kind}
//   - cronflow_scheduler_jobs_failed_total{scheduler_name,kind}
//   - cronflow_scheduler_job_duration_seconds{scheduler_name,kind}
//   - cronflow_scheduler_timers_armed_total{scheduler_name,mode}
//
// kind is one of "cron", "interval" or "date". mode is "new" when a fresh
// timer was created and "reset" when a live one was rearmed.
//
// # Custom Namespace
//
//	reg := metrics.NewRegistryWithConfig(metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"instance": "a"},
//	})
package metrics
