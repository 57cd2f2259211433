package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int](4)

	for i := range 3 {
		batch := []int{i, i}
		require.True(t, q.SwapIn(&batch))
		assert.Empty(t, batch)
	}
	assert.Equal(t, 3, q.Len())

	var out []int
	for i := range 3 {
		require.True(t, q.SwapOut(&out))
		assert.Equal(t, []int{i, i}, out)
	}
	assert.False(t, q.SwapOut(&out))
	assert.True(t, q.Empty())
}

func TestQueue_FullRejects(t *testing.T) {
	q := New[int](2)

	for range 2 {
		batch := []int{1}
		require.True(t, q.SwapIn(&batch))
	}

	batch := []int{7}
	assert.False(t, q.SwapIn(&batch))
	assert.Equal(t, []int{7}, batch)

	empty := []int{}
	assert.False(t, New[int](1).SwapIn(&empty))
}

func TestQueue_WaitWakesOnSwapIn(t *testing.T) {
	q := New[string](1)

	done := make(chan bool)
	go func() { done <- q.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	batch := []string{"x"}
	require.True(t, q.SwapIn(&batch))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after SwapIn")
	}
}

func TestQueue_WaitWakesOnCancel(t *testing.T) {
	q := New[string](1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool)
	go func() { done <- q.Wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestQueue_ManyProducers(t *testing.T) {
	const (
		producers = 8
		batches   = 200
	)
	q := New[int](producers * batches)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var batch []int
			for i := range batches {
				batch = append(batch, p*batches+i)
				for !q.SwapIn(&batch) {
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	var out []int
	for q.SwapOut(&out) {
		for _, v := range out {
			seen[v] = true
		}
	}
	assert.Len(t, seen, producers*batches)
}

func BenchmarkQueue_SwapInOut(b *testing.B) {
	q := New[int](DefaultSlots)
	in := make([]int, 0, 64)
	var out []int

	for b.Loop() {
		in = append(in, 1, 2, 3)
		q.SwapIn(&in)
		q.SwapOut(&out)
	}
}
