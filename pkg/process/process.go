// Package process contains the per-feature processors: buildings,
// roads with bridges and supports, water surfaces, green areas and POI
// markers. Every processor drapes, embeds or places geometry using the
// triangle-exact terrain provider and emits colored mesh fragments for
// the assembler.
//
// Processors are resilient: a degenerate or failing feature is logged
// and skipped, never fatal. Output order is input-stable even though
// features are processed concurrently.
package process

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/mesh"
)

// Per-feature error kinds. Both are logged and skipped, never fatal.
var (
	ErrDegenerateFeature = errors.New("degenerate feature")
	ErrInternalGeometry  = errors.New("geometry operation failed")
)

// forEach runs fn(i) for i in [0, n) on a bounded worker pool and
// returns a cancellation error as soon as the context dies. Each fn
// writes only into its own slot of a caller-owned slice, which keeps
// output deterministic regardless of scheduling.
func forEach(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	var cancelled error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return errors.Wrap(cancelled, "processing features")
	}
	return ctx.Err()
}

// collect drops nil fragments while keeping slot order.
func collect(frags []*mesh.Mesh) []*mesh.Mesh {
	out := make([]*mesh.Mesh, 0, len(frags))
	for _, f := range frags {
		if f != nil && !f.IsEmpty() {
			out = append(out, f)
		}
	}
	return out
}
