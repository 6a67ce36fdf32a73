package jobpool_test

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vnykmshr/jobpool/pkg/jobpool"
)

// Example demonstrates basic usage of the pool
func Example() {
	pool, err := jobpool.New(3)
	if err != nil {
		fmt.Println(err)
		return
	}

	var mu sync.Mutex
	var words []string
	for _, word := range []string{"lorem", "ipsum", "dummy"} {
		word := word
		if err := pool.Submit(func() {
			mu.Lock()
			words = append(words, word)
			mu.Unlock()
		}); err != nil {
			fmt.Println(err)
		}
	}

	pool.Shutdown()

	sort.Strings(words)
	fmt.Println(words)

	// Output: [dummy ipsum lorem]
}

// Example_panicIsolation shows that a panicking job does not take its worker down.
func Example_panicIsolation() {
	pool, _ := jobpool.NewWithConfig(jobpool.Config{
		Size: 1,
		PanicHandler: func(perr *jobpool.PanicError) {
			fmt.Println("recovered:", perr.Message())
		},
	})

	_ = pool.Submit(func() { panic("bad input") })
	_ = pool.Submit(func() { fmt.Println("next job still runs") })
	pool.Shutdown()

	// Output:
	// recovered: bad input
	// next job still runs
}

// Example_rejectedAfterShutdown shows the error returned once the pool stops.
func Example_rejectedAfterShutdown() {
	pool := jobpool.MustNew(2)
	pool.Shutdown()

	err := pool.Submit(func() {})
	fmt.Println(errors.Is(err, jobpool.ErrPoolShuttingDown))
	fmt.Println(err)

	// Output:
	// true
	// pool shutting down: resource is closed
}
