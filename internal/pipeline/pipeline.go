package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/idudko/mendel/internal/actions"
	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/queue"
	"github.com/idudko/mendel/internal/values"
)

// Config sizes the queues and the stage backoff.
type Config struct {
	QueueSlots int
	Spins      int
}

// Pipeline wires ingest → cache → actions → publish.
type Pipeline struct {
	cacheQueue   *queue.Queue[values.MetricData]
	actionsQueue *queue.Queue[values.MetricData]
	publishQueue *queue.Queue[actions.Result]

	cache   *CacheHandler
	actions *ActionsHandler
	publish *PublishHandler
	metrics *metrics.Metrics

	// mu orders Write against stopping: once stopped is set no batch can
	// enter the cache queue.
	mu      sync.RWMutex
	stopped bool
}

// New builds the stages over the frozen stores. m may be nil.
func New(cfg Config, store *values.Store, as *actions.Store, p Publisher, m *metrics.Metrics) *Pipeline {
	if cfg.Spins < 0 {
		cfg.Spins = 0
	}

	pl := &Pipeline{
		cacheQueue:   queue.New[values.MetricData](cfg.QueueSlots),
		actionsQueue: queue.New[values.MetricData](cfg.QueueSlots),
		publishQueue: queue.New[actions.Result](cfg.QueueSlots),
		metrics:      m,
	}
	pl.cache = NewCacheHandler(store, pl.cacheQueue, pl.actionsQueue, cfg.Spins, m)
	pl.actions = NewActionsHandler(as, store, pl.actionsQueue, pl.publishQueue, cfg.Spins, m)
	pl.publish = NewPublishHandler(pl.publishQueue, p, cfg.Spins, m)
	return pl
}

// Write hands a batch of raw metric data to the cache stage. *batch is
// replaced with an empty slice on success. It returns false when the batch
// was empty, the cache queue is full or the pipeline is stopping.
func (p *Pipeline) Write(batch *[]values.MetricData) bool {
	if len(*batch) == 0 {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped || !p.cacheQueue.SwapIn(batch) {
		p.metrics.QueueRejected(metrics.QueueCache)
		return false
	}
	return true
}

// Run starts every stage and blocks until ctx is done and all stages have
// drained. Write is refused from the moment ctx is done. Each stage is stopped
// only after its upstream stage has returned, so everything accepted before
// cancellation reaches the publisher.
func (p *Pipeline) Run(ctx context.Context) error {
	cacheCtx, stopCache := context.WithCancel(context.WithoutCancel(ctx))
	defer stopCache()
	stopWrites := context.AfterFunc(ctx, func() {
		p.stop()
		stopCache()
	})
	defer stopWrites()
	actionsCtx, stopActions := context.WithCancel(context.WithoutCancel(ctx))
	defer stopActions()
	publishCtx, stopPublish := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPublish()

	var g errgroup.Group
	g.Go(func() error {
		defer stopActions()
		p.cache.Run(cacheCtx)
		return nil
	})
	g.Go(func() error {
		defer stopPublish()
		p.actions.Run(actionsCtx)
		return nil
	})
	g.Go(func() error {
		p.publish.Run(publishCtx)
		return nil
	})
	err := g.Wait()
	p.stop()
	return err
}

func (p *Pipeline) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
