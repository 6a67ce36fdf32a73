package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sean-/sysexits"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/jobpool/internal/config"
	"github.com/vnykmshr/jobpool/pkg/jobpool"
	"github.com/vnykmshr/jobpool/pkg/jobpool/schedule"
)

// ── schedule ──────────────────────────────────────────────────────────────────

func (a *app) scheduleCmd() *cobra.Command {
	var (
		spec     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Submit jobs on cron schedules until interrupted",
		Long: "Runs the schedules from the configuration file. Without any, a single\n" +
			"heartbeat entry is created from --spec.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			entries := a.settings.Schedules
			if len(entries) == 0 {
				entries = []config.Schedule{{Name: "heartbeat", Spec: spec, Message: "alive"}}
			}
			return a.runSchedule(ctx, entries)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "@every 5s", "cron spec of the heartbeat entry")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long, 0 to run until interrupted")

	return cmd
}

func (a *app) runSchedule(ctx context.Context, entries []config.Schedule) error {
	pool, err := jobpool.NewWithMetrics(a.settings.PoolConfig(&a.log), a.metricsConfig())
	if err != nil {
		return err
	}

	sched, err := schedule.New(pool,
		schedule.WithName(a.settings.Name),
		schedule.WithLogger(a.log),
		schedule.WithMetrics(a.metricsConfig()),
	)
	if err != nil {
		pool.Shutdown()
		return err
	}

	for _, e := range entries {
		if _, err := sched.Add(e.Name, e.Spec, a.scheduledJob(e)); err != nil {
			pool.Shutdown()
			return err
		}
	}

	sched.Start()
	for _, e := range sched.Entries() {
		a.log.Info().Str("entry", e.Name).Str("spec", e.Spec).Time("next", e.Next).Msg("schedule registered")
	}

	<-ctx.Done()
	a.log.Info().Msg("stopping schedules")

	shutdownCtx, cancel := a.shutdownContext()
	defer cancel()

	stopErr := sched.Stop(shutdownCtx)
	drainErr := pool.ShutdownWithContext(shutdownCtx)
	if err := errors.Join(stopErr, drainErr); err != nil {
		return withExitCode(sysexits.TempFail, fmt.Errorf("shutdown: %w", err))
	}

	stats := pool.Stats()
	fmt.Fprintf(a.stdout, "Scheduled Jobs Run: %d\n", stats.Completed+stats.Panicked+stats.Aborted)
	return nil
}

func (a *app) scheduledJob(e config.Schedule) jobpool.Job {
	msg := e.Message
	if msg == "" {
		msg = "tick"
	}
	return func() {
		fmt.Fprintf(a.stdout, "%s: %s\n", e.Name, msg)
	}
}
