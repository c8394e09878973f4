package evo

import (
	"context"
	"errors"
	"sync"
)

// Progress receives completed and total job counts. It is always called from
// the collecting goroutine, never concurrently.
type Progress func(done, total int)

type Options struct {
	Workers  int
	Progress Progress
}

// runJobs evaluates fn for every index on a bounded worker pool. Results are
// returned in index order, so they never depend on scheduling. On failure the
// remaining jobs are cancelled and the lowest-index failure is returned.
func runJobs[T any](ctx context.Context, n int, opts Options, fn func(ctx context.Context, idx int) (T, error)) ([]T, error) {
	out := make([]T, n)
	if n == 0 {
		return out, nil
	}

	type result struct {
		idx   int
		value T
		err   error
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	workerCount := opts.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > n {
		workerCount = n
	}

	jobs := make(chan int)
	results := make(chan result, n)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				value, err := fn(ctx, idx)
				results <- result{idx: idx, value: value, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		firstErr    error
		firstErrIdx = n
		done        int
	)
	for res := range results {
		if res.err != nil {
			// jobs aborted by our own cancel must not mask the real failure
			if errors.Is(res.err, context.Canceled) && parent.Err() == nil {
				cancel()
				continue
			}
			if res.idx < firstErrIdx {
				firstErr, firstErrIdx = res.err, res.idx
			}
			cancel()
			continue
		}
		out[res.idx] = res.value
		done++
		if opts.Progress != nil {
			opts.Progress(done, n)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := parent.Err(); err != nil && done < n {
		return nil, err
	}
	return out, nil
}
