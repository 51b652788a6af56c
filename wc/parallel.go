package wc

import "golang.org/x/sync/errgroup"

// threadBounds splits data into nthreads contiguous sub-ranges; thread t
// scans [bounds[t], bounds[t+1]). Interior cuts that land inside a token
// are moved forward past the rest of it, so the token is scanned whole by
// the thread on its left and skipped by the thread on its right.
func threadBounds(data []byte, nthreads int) []int {
	n := len(data)
	bounds := make([]int, nthreads+1)
	bounds[nthreads] = n
	for t := 1; t < nthreads; t++ {
		cut := n * t / nthreads
		if cut < bounds[t-1] {
			cut = bounds[t-1]
		}
		for cut > 0 && cut < n && IsWordChar(data[cut-1]) && IsWordChar(data[cut]) {
			cut++
		}
		bounds[t] = cut
	}
	return bounds
}

// CountParallel counts the words of data with nthreads goroutines, each
// owning a private counter, and merges the partial counters once all of
// them have finished. The result equals Count(data).
func CountParallel(data []byte, nthreads int) Counter {
	if len(data) == 0 {
		return make(Counter)
	}
	if nthreads <= 0 {
		nthreads = 1
	}
	bounds := threadBounds(data, nthreads)
	locals := make([]Counter, nthreads)
	var g errgroup.Group
	for t := 0; t < nthreads; t++ {
		t := t
		g.Go(func() error {
			local := make(Counter)
			if start, end := bounds[t], bounds[t+1]; start < end {
				CountSpan(data[start:end], local)
			}
			locals[t] = local
			return nil
		})
	}
	// The scans never fail; Wait is the barrier before the merge.
	_ = g.Wait()

	merged := make(Counter)
	for _, local := range locals {
		Merge(merged, local)
	}
	return merged
}
