package gen

import (
	"runtime"

	"github.com/alitto/pond/v2"
)

// forEachSlab calls fn for every x in [0, size). fn must only touch cells of
// its own slab. workers <= 0 means one per CPU; 1 runs inline.
func forEachSlab(size, workers int, fn func(x int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || size == 1 {
		for x := 0; x < size; x++ {
			fn(x)
		}
		return
	}

	pool := pond.NewPool(workers)
	for x := 0; x < size; x++ {
		pool.Submit(func() { fn(x) })
	}
	pool.StopAndWait()
}
