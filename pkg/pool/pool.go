// Package pool provides a typed sync.Pool for values that know how to clear
// themselves.
package pool

import "sync"

// Resetter is implemented by pooled values.
type Resetter interface {
	Reset()
}

// Pool is a sync.Pool of T. Values are reset when they are returned, so Get
// always yields a cleared value with its buffers kept.
type Pool[T Resetter] struct {
	pool sync.Pool
}

// New returns a pool creating values with newFunc when empty.
//
// Example:
//
//	batches := pool.New(func() *values.Batch { return &values.Batch{} })
//	b := batches.Get()
//	defer batches.Put(b)
func New[T Resetter](newFunc func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return newFunc()
			},
		},
	}
}

// Get takes a value from the pool or creates one.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put resets x and returns it to the pool.
func (p *Pool[T]) Put(x T) {
	x.Reset()
	p.pool.Put(x)
}
