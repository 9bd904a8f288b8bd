// Package parallel fans work out across goroutines.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
)

// Parallelize splits [0, items) into one contiguous range per CPU core and
// calls fn for each range concurrently. It returns once every range is done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Workers resolves a jobs setting into a worker count: n <= 0 means one worker
// per CPU, and the result never exceeds items.
func Workers(jobs, items int) int {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > items {
		jobs = items
	}
	if jobs < 1 {
		jobs = 1
	}
	return jobs
}

// ForEach calls fn(i) for every i in [0, items) using at most jobs goroutines
// (see Workers). With a single worker the calls happen in index order on the
// calling goroutine. A panic in fn is returned as *errors.PanicError. The first
// error stops new calls from being scheduled and is returned.
func ForEach(items, jobs int, operation string, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}

	workers := Workers(jobs, items)
	if workers == 1 {
		for i := 0; i < items; i++ {
			if err := errors.SafeExecute(operation, func() error { return fn(i) }); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < items; i++ {
		i := i
		g.Go(func() error {
			return errors.SafeExecute(operation, func() error { return fn(i) })
		})
	}
	return g.Wait()
}
