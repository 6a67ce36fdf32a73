package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/jobpool/pkg/jobpool"
)

var words = []string{"lorem", "ipsum", "is", "a", "dummy"}

// ── words ─────────────────────────────────────────────────────────────────────

func (a *app) wordsCmd() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "words",
		Short: "Process five words on the pool and shut it down",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runWords(delay)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "simulated work per word")

	return cmd
}

func (a *app) runWords(delay time.Duration) error {
	pool, err := jobpool.NewWithMetrics(a.settings.PoolConfig(&a.log), a.metricsConfig())
	if err != nil {
		return err
	}

	for i, w := range words {
		i, w := i, w
		if err := pool.Submit(func() {
			time.Sleep(delay)
			fmt.Fprintf(a.stdout, "Processing word %d: %s\n", i, w)
		}); err != nil {
			pool.Shutdown()
			return err
		}
	}

	pool.Shutdown()
	fmt.Fprintln(a.stdout, "Goodbye")

	return nil
}
