// Command jobpool drives a worker pool from the command line.
//
// Subcommands:
//
//	words     submit five labelled words to a four-worker pool and drain it
//	stress    hammer a pool from concurrent producers and verify the counts
//	schedule  submit jobs on cron schedules until interrupted
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sean-/seed"
	"github.com/sean-/sysexits"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/jobpool/internal/config"
	"github.com/vnykmshr/jobpool/internal/logging"
	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/metrics"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	seed.MustInit()

	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.stopMetrics()
	if err != nil {
		fmt.Fprintf(stderr, "jobpool: %v\n", err)
		return exitCode(err)
	}
	return sysexits.OK
}

// exitError carries a specific process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return ee.code
	case jperrors.IsValidationError(err):
		return sysexits.Config
	default:
		return sysexits.Usage
	}
}

// app carries state shared between the root command and its subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	workers     int
	queueSize   int
	logLevel    string
	logFormat   string
	metricsAddr string

	settings *config.Settings
	log      zerolog.Logger
	metrics  *http.Server
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobpool",
		Short:         "Bounded worker pool driver",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML configuration file")
	f.IntVar(&a.workers, "workers", 0, "number of pool workers")
	f.IntVar(&a.queueSize, "queue-size", 0, "queue capacity, 0 for unbounded")
	f.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	f.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		a.wordsCmd(),
		a.stressCmd(),
		a.scheduleCmd(),
	)

	return root
}

// setup loads settings, applies flags that were set explicitly and builds
// the logger.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return withExitCode(sysexits.Config, fmt.Errorf("config: %w", err))
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		s.Workers = a.workers
	}
	if flags.Changed("queue-size") {
		s.QueueSize = a.queueSize
	}
	if flags.Changed("log-level") {
		s.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		s.LogFormat = a.logFormat
	}
	if flags.Changed("metrics-addr") {
		s.MetricsAddr = a.metricsAddr
	}
	if err := s.Validate(); err != nil {
		return withExitCode(sysexits.Config, err)
	}
	a.settings = s

	a.log, err = logging.New(s.LogLevel, s.LogFormat, a.stderr)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if s.MetricsAddr != "" {
		if err := a.startMetrics(s.MetricsAddr); err != nil {
			return withExitCode(sysexits.Unavailable, fmt.Errorf("metrics: %w", err))
		}
	}
	return nil
}

// metricsConfig returns the metrics configuration for pools and schedulers.
// Collection is only enabled when something serves it.
func (a *app) metricsConfig() metrics.Config {
	if a.metrics == nil {
		return metrics.Config{Enabled: false}
	}
	return metrics.DefaultConfig()
}

func (a *app) startMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	a.log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return nil
}

func (a *app) stopMetrics() {
	if a.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("metrics server shutdown")
	}
}

// shutdownContext bounds the final drain by the configured timeout.
func (a *app) shutdownContext() (context.Context, context.CancelFunc) {
	if a.settings.ShutdownTimeout == 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), a.settings.ShutdownTimeout)
}
