package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/cronflow/internal/config"
	"github.com/vnykmshr/cronflow/internal/logging"
	"github.com/vnykmshr/cronflow/internal/runner"
	"github.com/vnykmshr/cronflow/pkg/metrics"
	"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

const shutdownTimeout = 10 * time.Second

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", config.DefaultConfigPath, "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(stdout, cfg.LogLevel, cfg.LogFormat)
	return serve(ctx, cfg, logger)
}

// serve runs cfg's jobs until ctx is done, then shuts everything down in
// order: scheduler, in-flight commands, loop, metrics endpoint.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	minDelay, err := cfg.MinDelayDuration()
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = metrics.NewRegistry(promReg)

		srv, err = startMetricsServer(cfg.MetricsAddr, promReg, logging.WithComponent(logger, "metrics"))
		if err != nil {
			return err
		}
	}

	loopLogger := logging.WithComponent(logger, "eventloop")
	loop, err := eventloop.NewWithConfig(eventloop.Config{}, &loopLogger)
	if err != nil {
		return err
	}

	s, err := scheduler.NewWithConfig(loop, scheduler.Config{
		Name:     cfg.Name,
		Location: loc,
		MinDelay: minDelay,
		Logger:   &logger,
		Metrics:  reg,
		Context:  ctx,
	})
	if err != nil {
		<-loop.Shutdown()
		return err
	}

	r := runner.New(logging.WithComponent(logger, "runner"))
	for i := range cfg.Jobs {
		if err := addJob(s, r, &cfg.Jobs[i], logger); err != nil {
			s.Shutdown()
			<-loop.Shutdown()
			return err
		}
	}
	logger.Info().Str("scheduler", cfg.Name).Int("jobs", s.Len()).Msg("cronflow started")

	<-ctx.Done()
	logger.Info().Msg("cronflow shutting down")

	s.Shutdown()
	r.Wait()
	<-loop.Shutdown()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}

func addJob(s *scheduler.Scheduler, r *runner.Runner, jc *config.JobConfig, logger zerolog.Logger) error {
	schedule, err := jc.Schedule()
	if err != nil {
		return err
	}
	job, err := s.AddJob(schedule, r.JobFunc(jc.Name, jc.Command, jc.TimeoutDuration()))
	if err != nil {
		return fmt.Errorf("job %s: %w", jc.Name, err)
	}

	log := logger.With().Str("job", jc.Name).Int("job_id", job.ID()).Logger()
	if err := job.AddCallback(func(result interface{}, _ ...interface{}) {
		res := result.(*runner.Result)
		log.Info().
			Dur("duration", res.Duration).
			Int("stdout_bytes", len(res.Stdout)).
			Msg("command succeeded")
	}); err != nil {
		return err
	}
	if err := job.AddErrback(func(err error, _ ...interface{}) {
		log.Error().Err(err).Msg("command failed")
	}); err != nil {
		return err
	}

	log.Info().Str("schedule", job.String()).Time("next", job.NextExecTime()).Msg("job scheduled")
	return nil
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint listening")
	return srv, nil
}
