// Package hitfinder provides the row/module-parallel fan-out and
// prefix-sum stitching pattern spec.md §4.6 calls "used uniformly by
// all hit-finder stages": independent units of work (one per row or
// module) run concurrently, each producing a fragment of the output;
// fragment sizes are prefix-summed to find each worker's slot in the
// final flat buffer, and workers copy their fragment straight into
// place without a second merge pass.
//
// Grounded on the worker-goroutine + sync.WaitGroup idiom in
// legacy/cmd/lidar/lidar.go, generalised with Go generics. Its only
// caller is internal/trd1d; STS, TRD-2D and TOF/BMon do not use it.
package hitfinder

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// FanOut runs work(i) for i in [0,n) across a bounded worker pool and
// returns each call's result in index order. Unlike a plain
// goroutine-per-item loop, it caps concurrency at GOMAXPROCS so a
// timeslice with thousands of rows doesn't spawn thousands of
// goroutines at once.
func FanOut[T any](n int, work func(i int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				results[i] = work(i)
			}
		}()
	}
	wg.Wait()
	return results
}

// Stitch implements the prefix-sum reduce from spec.md §4.6: given one
// fragment slice per unit of work, it computes the flat output size,
// allocates it once, and copies every fragment into its prefix-summed
// slot. Returns the flat slice plus, for each fragment, its element-index
// offset into the output, followed by one final entry holding the total
// length (len(fragments)+1 offsets, the shape PartitionedVector uses).
func Stitch[T any](fragments [][]T) (flat []T, offsets []int) {
	offsets = make([]int, len(fragments)+1)
	for i, f := range fragments {
		offsets[i+1] = offsets[i] + len(f)
	}
	flat = make([]T, offsets[len(fragments)])

	FanOut(len(fragments), func(i int) struct{} {
		copy(flat[offsets[i]:offsets[i+1]], fragments[i])
		return struct{}{}
	})
	return flat, offsets
}
