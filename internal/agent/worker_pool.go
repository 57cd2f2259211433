package agent

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type Task func(ctx context.Context) error

// WorkerPool runs tasks on a fixed number of goroutines. The worker count
// bounds concurrent requests to the server.
type WorkerPool struct {
	workerCount int
	tasks       chan Task
	wg          sync.WaitGroup
}

func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		tasks:       make(chan Task, workerCount),
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	for range p.workerCount {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Stop closes the task queue and waits for queued tasks to finish.
func (p *WorkerPool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}

// EnqueueTask queues task. It returns false without queueing when every
// worker is busy and the queue is full, so a slow server drops reports
// instead of piling them up.
func (p *WorkerPool) EnqueueTask(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for task := range p.tasks {
		if err := task(ctx); err != nil {
			log.Error().Err(err).Msg("task failed")
		}
	}
}
