package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/actions"
	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/queue"
)

// Publisher delivers a result body to a topic. Implementations must not keep
// body after returning.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// PublishHandler hands queued results to a Publisher.
type PublishHandler struct {
	in        *queue.Queue[actions.Result]
	publisher Publisher
	spins     int
	metrics   *metrics.Metrics
}

// NewPublishHandler returns a publish stage reading results from in.
func NewPublishHandler(in *queue.Queue[actions.Result], p Publisher, spins int, m *metrics.Metrics) *PublishHandler {
	return &PublishHandler{in: in, publisher: p, spins: spins, metrics: m}
}

// Run publishes results until ctx is done and the queue is drained. Publishing
// itself is not cancelled by ctx so results drained on shutdown still go out.
func (h *PublishHandler) Run(ctx context.Context) {
	log.Info().Msg("publish handler started")
	pubCtx := context.WithoutCancel(ctx)
	runStage(ctx, h.in, h.spins, func(batch []actions.Result) {
		h.metrics.QueueDepth(metrics.QueuePublish, h.in.Len())
		for i := range batch {
			r := &batch[i]
			err := h.publisher.Publish(pubCtx, r.Topic, r.Data)
			h.metrics.Published("pipeline", err)
			if err != nil {
				log.Error().Err(err).Str("topic", r.Topic).Msg("publish result")
			}
		}
	})
	log.Info().Msg("publish handler stopped")
}
