package pipeline

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/queue"
	"github.com/idudko/mendel/internal/values"
)

// CacheHandler parses raw values into the value store and forwards the
// values that changed.
type CacheHandler struct {
	store   *values.Store
	in      *queue.Queue[values.MetricData]
	out     *queue.Queue[values.MetricData]
	spins   int
	metrics *metrics.Metrics

	changed []values.MetricData
}

// NewCacheHandler returns a cache stage reading from in and forwarding to out.
func NewCacheHandler(store *values.Store, in, out *queue.Queue[values.MetricData], spins int, m *metrics.Metrics) *CacheHandler {
	return &CacheHandler{store: store, in: in, out: out, spins: spins, metrics: m}
}

// Run processes batches until ctx is done and the input queue is drained.
func (h *CacheHandler) Run(ctx context.Context) {
	log.Info().Msg("cache handler started")
	runStage(ctx, h.in, h.spins, h.process)
	log.Info().Msg("cache handler stopped")
}

func (h *CacheHandler) process(batch []values.MetricData) {
	h.metrics.QueueDepth(metrics.QueueCache, h.in.Len())

	var unchanged, invalid, unknown int
	for i := range batch {
		d := &batch[i]

		v, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			invalid++
			log.Debug().Stringer("id", d.ID).Str("value", d.Value).Msg("cache: value is not numeric")
			continue
		}

		changed := false
		found := h.store.Find(func(c *values.Cell) {
			changed = c.Swap(v) != v
		}, d.ID)

		switch {
		case !found:
			unknown++
		case !changed:
			unchanged++
		default:
			var fwd *values.MetricData
			h.changed, fwd = values.Extend(h.changed)
			fwd.CopyFrom(d)
			fwd.Binary = values.Float(v)
		}
	}
	h.metrics.CacheValues(len(h.changed), unchanged, invalid, unknown)

	if len(h.changed) == 0 {
		return
	}
	if !h.out.SwapIn(&h.changed) {
		h.metrics.QueueRejected(metrics.QueueActions)
		log.Warn().Int("values", len(h.changed)).Msg("actions queue full, dropping changed values")
		h.changed = h.changed[:0]
	}
}
