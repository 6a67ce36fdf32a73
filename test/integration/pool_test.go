// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that different components work together correctly in realistic scenarios.
package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/goleak"

	"github.com/vnykmshr/jobpool/internal/config"
	"github.com/vnykmshr/jobpool/internal/logging"
	"github.com/vnykmshr/jobpool/internal/testutil"
	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/jobpool"
	"github.com/vnykmshr/jobpool/pkg/jobpool/schedule"
	"github.com/vnykmshr/jobpool/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// every fires at a fixed sub-second interval, which cron specs cannot express.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// TestConfiguredPoolWithMetrics loads settings from a file, builds the logger
// and an instrumented pool from them, and checks that logs, metrics and stats
// agree after a drain.
func TestConfiguredPoolWithMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte("workers: 3\nqueue_size: 8\nname: integration\nlog_format: json\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	settings, err := config.LoadValid(path)
	testutil.AssertNoError(t, err)

	out := testutil.NewMockWriter()
	log, err := logging.New(settings.LogLevel, settings.LogFormat, out)
	testutil.AssertNoError(t, err)

	reg := prometheus.NewRegistry()
	pool, err := jobpool.NewWithMetrics(settings.PoolConfig(&log), metrics.Config{Enabled: true, Registry: reg})
	testutil.AssertNoError(t, err)

	const total = 200
	var ran atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < total/4; i++ {
				fail := p == 0 && i%10 == 0
				err := pool.Submit(func() {
					ran.Add(1)
					if fail {
						panic(errors.New("integration failure"))
					}
				})
				if err != nil {
					t.Errorf("submit failed: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	pool.Shutdown()

	testutil.AssertEqual(t, int64(total), ran.Load())

	stats := pool.Stats()
	testutil.AssertEqual(t, int64(total), stats.Submitted)
	testutil.AssertEqual(t, int64(5), stats.Panicked)
	testutil.AssertEqual(t, int64(total-5), stats.Completed)

	testutil.AssertEqual(t, float64(total), gathered(t, reg, "jobpool_pool_jobs_submitted_total"))
	testutil.AssertEqual(t, float64(5), gathered(t, reg, "jobpool_pool_jobs_panicked_total"))
	testutil.AssertEqual(t, float64(0), gathered(t, reg, "jobpool_pool_queued_jobs"))

	if !out.Contains(`"pool":"integration"`) || !out.Contains(`"message":"job panicked"`) {
		t.Errorf("missing expected log lines:\n%s", out.String())
	}
}

// gathered returns the value of the single series of the named counter or
// gauge family.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	testutil.AssertNoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		m := f.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

// TestScheduleFeedsPoolUntilShutdown runs a scheduler against a live pool,
// shuts the pool down underneath it and checks that later ticks are
// rejected instead of executed.
func TestScheduleFeedsPoolUntilShutdown(t *testing.T) {
	pool := jobpool.MustNew(2)

	var ran atomic.Int64
	sched, err := schedule.New(pool, schedule.WithName("integration"))
	testutil.AssertNoError(t, err)

	_, err = sched.AddSchedule("tick", every(5*time.Millisecond), func() { ran.Add(1) })
	testutil.AssertNoError(t, err)

	sched.Start()
	testutil.Eventually(t, func() bool { return ran.Load() >= 3 }, time.Second, 5*time.Millisecond)

	pool.Shutdown()
	afterShutdown := ran.Load()

	rejected := func() bool { return pool.Stats().Rejected > 0 }
	testutil.Eventually(t, rejected, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	testutil.AssertNoError(t, sched.Stop(ctx))

	testutil.AssertEqual(t, afterShutdown, ran.Load())

	err = pool.Submit(func() {})
	testutil.AssertErrorIs(t, err, jobpool.ErrPoolShuttingDown)
	testutil.AssertErrorIs(t, err, jperrors.ErrClosed)
}

// TestBoundedPoolWithCronSpec uses a parsed cron spec and a bounded queue
// behind the scheduler.
func TestBoundedPoolWithCronSpec(t *testing.T) {
	pool, err := jobpool.NewWithConfig(jobpool.Config{Size: 1, QueueSize: 1, Name: "bounded"})
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	sched, err := schedule.New(pool)
	testutil.AssertNoError(t, err)

	id, err := sched.Add("every-second", "* * * * * *", func() {})
	testutil.AssertNoError(t, err)
	testutil.AssertNotEqual(t, cron.EntryID(0), id)

	sched.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	testutil.AssertNoError(t, sched.Stop(ctx))

	entries := sched.Entries()
	testutil.AssertEqual(t, 1, len(entries))
	testutil.AssertEqual(t, "* * * * * *", entries[0].Spec)
}
