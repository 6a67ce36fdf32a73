package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sean-/sysexits"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/common/validation"
	"github.com/vnykmshr/jobpool/pkg/jobpool"
)

type stressOptions struct {
	producers  int
	jobs       int
	panicRatio float64
	rate       float64
	work       time.Duration
}

func (o stressOptions) validate() error {
	if err := validation.ValidatePositive("stress", "producers", o.producers); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("stress", "jobs", o.jobs); err != nil {
		return err
	}
	if o.panicRatio < 0 || o.panicRatio > 1 {
		return jperrors.NewValidationError("stress", "panic-ratio", o.panicRatio, "out of range").
			WithHint("use a value between 0 and 1")
	}
	if o.rate < 0 {
		return jperrors.NewValidationError("stress", "rate", o.rate, "cannot be negative").
			WithHint("use 0 for no limit")
	}
	return nil
}

// limiter returns the per-producer submission limiter.
func (o stressOptions) limiter() *rate.Limiter {
	if o.rate == 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(o.rate), 1)
}

// share is the number of jobs producer i submits.
func (o stressOptions) share(i int) int {
	n := o.jobs / o.producers
	if i < o.jobs%o.producers {
		n++
	}
	return n
}

type stressResult struct {
	stats    jobpool.Stats
	executed int64
	stalls   int64
	failed   int64
	elapsed  time.Duration
}

// ── stress ────────────────────────────────────────────────────────────────────

func (a *app) stressCmd() *cobra.Command {
	var opts stressOptions

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Submit many jobs from concurrent producers and verify every one ran",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := a.runStress(ctx, opts)
			if err != nil {
				return err
			}
			a.printStress(res)
			return a.checkStress(ctx, opts, res)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.producers, "producers", 4, "number of concurrent producers")
	f.IntVar(&opts.jobs, "jobs", 10000, "total number of jobs")
	f.Float64Var(&opts.panicRatio, "panic-ratio", 0, "fraction of jobs that panic")
	f.Float64Var(&opts.rate, "rate", 0, "per-producer submissions per second, 0 for no limit")
	f.DurationVar(&opts.work, "work", 0, "upper bound of random simulated work per job")

	return cmd
}

func (a *app) runStress(ctx context.Context, opts stressOptions) (stressResult, error) {
	pool, err := jobpool.NewWithMetrics(a.settings.PoolConfig(&a.log), a.metricsConfig())
	if err != nil {
		return stressResult{}, err
	}

	var (
		res      stressResult
		executed atomic.Int64
		stalls   atomic.Int64
		failed   atomic.Int64
		wg       sync.WaitGroup
	)

	start := time.Now()
	for i := 0; i < opts.producers; i++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()

			limiter := opts.limiter()
			for j := 0; j < opts.share(producer); j++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				job := stressJob(producer, j, opts, &executed)
				err := pool.TrySubmit(job)
				if jperrors.IsRetryable(err) {
					stalls.Add(1)
					err = pool.SubmitWithContext(ctx, job)
				}
				if err != nil {
					failed.Add(1)
					a.log.Debug().Err(err).Int("producer", producer).Msg("submit failed")
				}
			}
		}(i)
	}
	wg.Wait()

	shutdownCtx, cancel := a.shutdownContext()
	defer cancel()
	if err := pool.ShutdownWithContext(shutdownCtx); err != nil {
		return stressResult{}, withExitCode(sysexits.TempFail, fmt.Errorf("drain: %w", err))
	}

	res.stats = pool.Stats()
	res.executed = executed.Load()
	res.stalls = stalls.Load()
	res.failed = failed.Load()
	res.elapsed = time.Since(start)

	return res, nil
}

func stressJob(producer, seq int, opts stressOptions, executed *atomic.Int64) jobpool.Job {
	shouldPanic := rand.Float64() < opts.panicRatio
	var work time.Duration
	if opts.work > 0 {
		work = time.Duration(rand.Int63n(int64(opts.work)))
	}

	return func() {
		executed.Add(1)
		time.Sleep(work)
		if shouldPanic {
			panic(fmt.Sprintf("stress job %d/%d", producer, seq))
		}
	}
}

func (a *app) printStress(res stressResult) {
	fmt.Fprintf(a.stdout, "Jobs Submitted: %d\n", res.stats.Submitted)
	fmt.Fprintf(a.stdout, "Jobs Completed: %d\n", res.stats.Completed)
	fmt.Fprintf(a.stdout, "Jobs Panicked: %d\n", res.stats.Panicked)
	fmt.Fprintf(a.stdout, "Jobs Failed To Submit: %d\n", res.failed)
	fmt.Fprintf(a.stdout, "Producer Stalls: %d\n", res.stalls)
	fmt.Fprintf(a.stdout, "Elapsed: %s\n", res.elapsed.Round(time.Millisecond))
}

// checkStress verifies that every accepted job ran exactly once. When the
// run was interrupted only the accepted jobs are expected.
func (a *app) checkStress(ctx context.Context, opts stressOptions, res stressResult) error {
	s := res.stats
	if s.Completed+s.Panicked+s.Aborted != s.Submitted || res.executed != s.Submitted {
		return withExitCode(sysexits.Software, fmt.Errorf(
			"accepted %d jobs but %d ran (%d completed, %d panicked)",
			s.Submitted, res.executed, s.Completed, s.Panicked))
	}
	if ctx.Err() == nil && s.Submitted != int64(opts.jobs) {
		return withExitCode(sysexits.Software, fmt.Errorf(
			"submitted %d of %d jobs", s.Submitted, opts.jobs))
	}
	return nil
}
