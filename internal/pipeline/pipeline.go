package pipeline

import (
	"runtime"
	"sync"
)

// Each runs fn over items on a pool of workers goroutines (NumCPU when
// workers <= 0) and returns the non-nil errors in completion order. fn
// receives the item's index so callers can write results into a
// preallocated slice without locking.
func Each[T any](items []T, workers int, fn func(i int, item T) error) []error {
	if len(items) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	workers = min(workers, len(items))

	type job struct {
		i    int
		item T
	}
	jobs := make(chan job)
	errs := make(chan error, len(items))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := fn(j.i, j.item); err != nil {
					errs <- err
				}
			}
		}()
	}

	for i, item := range items {
		jobs <- job{i: i, item: item}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
