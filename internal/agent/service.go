package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds the agent schedule.
type Config struct {
	PollInterval   time.Duration
	ReportInterval time.Duration
	RateLimit      int

	// DrainTimeout bounds sending queued reports after Run is cancelled.
	DrainTimeout time.Duration
}

// DefaultDrainTimeout is used when Config.DrainTimeout is not set.
const DefaultDrainTimeout = 5 * time.Second

// Service polls the collector and reports snapshots through a worker pool.
type Service struct {
	collector *Collector
	sender    *Sender
	cfg       Config
	pool      *WorkerPool
}

func NewService(collector *Collector, sender *Sender, cfg Config) *Service {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Service{
		collector: collector,
		sender:    sender,
		cfg:       cfg,
		pool:      NewWorkerPool(cfg.RateLimit),
	}
}

// Run polls and reports until ctx is done. Reports already queued are still
// sent before Run returns, for at most DrainTimeout.
func (s *Service) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	s.pool.Start(workerCtx)
	defer func() {
		t := time.AfterFunc(s.cfg.DrainTimeout, stopWorkers)
		defer t.Stop()
		s.pool.Stop()
	}()

	log.Info().
		Str("endpoint", s.sender.Endpoint()).
		Dur("poll", s.cfg.PollInterval).
		Dur("report", s.cfg.ReportInterval).
		Msg("agent started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		every(ctx, s.cfg.PollInterval, s.collector.Collect)
		return nil
	})
	g.Go(func() error {
		every(ctx, s.cfg.PollInterval, func() {
			if err := s.collector.CollectSystem(ctx); err != nil {
				log.Warn().Err(err).Msg("system metrics")
			}
		})
		return nil
	})
	g.Go(func() error {
		every(ctx, s.cfg.ReportInterval, s.report)
		return nil
	})
	return g.Wait()
}

func (s *Service) report() {
	snapshot := s.collector.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	ok := s.pool.EnqueueTask(func(ctx context.Context) error {
		return s.sender.Send(ctx, snapshot)
	})
	if !ok {
		log.Warn().Int("gauges", len(snapshot)).Msg("workers busy, report dropped")
	}
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
