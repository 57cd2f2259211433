// Package queue provides a bounded many-producer, single-consumer queue that
// moves whole batches by swapping slices instead of copying items.
package queue

import (
	"context"
	"sync"
)

// DefaultSlots is the number of batches a queue holds unless configured.
const DefaultSlots = 16

// Queue is a ring of batch slots guarded by one mutex.
//
// Producers hand over their batch with SwapIn and get back an empty slice with
// reusable capacity. The consumer takes the oldest batch with SwapOut in the
// same way. Batches are delivered in SwapIn order.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots [][]T
	head  int
	size  int
}

// New returns a queue holding at most slots batches.
func New[T any](slots int) *Queue[T] {
	if slots <= 0 {
		slots = DefaultSlots
	}
	q := &Queue[T]{slots: make([][]T, slots)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SwapIn enqueues *batch and replaces it with an empty slice. It returns false
// and leaves *batch untouched when the queue is full or the batch is empty.
func (q *Queue[T]) SwapIn(batch *[]T) bool {
	if len(*batch) == 0 {
		return false
	}

	q.mu.Lock()
	if q.size == len(q.slots) {
		q.mu.Unlock()
		return false
	}
	tail := (q.head + q.size) % len(q.slots)
	q.slots[tail], *batch = *batch, q.slots[tail][:0]
	q.size++
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// SwapOut moves the oldest batch into *batch. The slice previously held by
// *batch is kept in the queue for reuse. It returns false when the queue is
// empty.
func (q *Queue[T]) SwapOut(batch *[]T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return false
	}
	q.slots[q.head], *batch = (*batch)[:0], q.slots[q.head]
	q.head = (q.head + 1) % len(q.slots)
	q.size--
	return true
}

// Wait blocks until the queue holds a batch or ctx is done. It reports
// whether a batch is available.
func (q *Queue[T]) Wait(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.size == 0 && ctx.Err() == nil {
		q.cond.Wait()
	}
	return q.size > 0
}

// Empty reports whether no batch is queued.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of queued batches.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the number of slots.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}
