// =============================================================================
// FILE: internal/worker/pool.go
// PURPOSE: Bounded-concurrency fan-out for independent tasks that return only
//          an error, e.g. internal/job.Manager.Startup running recovery and
//          archival of every live job record concurrently at boot.
// =============================================================================

package worker

import (
	"context"
	"sync"
)

// SimplePool runs a batch of functions concurrently, capping how many run
// at once.
type SimplePool struct {
	workers int
}

// NewSimplePool creates a simple worker pool.
func NewSimplePool(workers int) *SimplePool {
	if workers <= 0 {
		workers = 1
	}
	return &SimplePool{workers: workers}
}

// Run executes all functions concurrently with bounded parallelism.
//
// Parameters:
//   - ctx: Context for cancellation.
//   - tasks: Functions to execute.
//
// Returns:
//   - Slice of errors (nil for successful tasks), in order.
func (sp *SimplePool) Run(ctx context.Context, tasks []func(context.Context) error) []error {
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, sp.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, fn func(context.Context) error) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				errs[idx] = ctx.Err()
				return
			}
			errs[idx] = fn(ctx)
		}(i, task)
	}

	wg.Wait()
	return errs
}
