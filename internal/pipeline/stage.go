// Package pipeline connects the cache, actions and publish stages through
// bounded swap queues. Each stage runs on its own goroutine.
package pipeline

import (
	"context"
	"runtime"

	"github.com/idudko/mendel/internal/queue"
)

// DefaultSpins is the number of empty polls a stage makes before it blocks.
const DefaultSpins = 400

// runStage drains q into process until ctx is done. After an empty poll the
// stage yields up to spins times before blocking on the queue. Once ctx is done
// everything still queued is processed before returning.
func runStage[T any](ctx context.Context, q *queue.Queue[T], spins int, process func([]T)) {
	var batch []T
	idle := 0
	for {
		if q.SwapOut(&batch) {
			process(batch)
			idle = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if idle < spins {
			idle++
			runtime.Gosched()
			continue
		}
		idle = 0
		q.Wait(ctx)
	}
}
