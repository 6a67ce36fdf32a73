package jobpool

import (
	"fmt"
	"sync"
	"testing"
)

func BenchmarkSubmit(b *testing.B) {
	for _, size := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers=%d", size), func(b *testing.B) {
			pool := MustNew(size)
			job := func() {}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Submit(job)
			}
			b.StopTimer()
			pool.Shutdown()
		})
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	pool := MustNew(8)
	defer pool.Shutdown()

	job := func() {}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pool.Submit(job)
		}
	})
}

func BenchmarkSubmitAndDrain(b *testing.B) {
	pool := MustNew(4)
	var wg sync.WaitGroup
	job := func() { wg.Done() }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		_ = pool.Submit(job)
	}
	wg.Wait()
	b.StopTimer()
	pool.Shutdown()
}
