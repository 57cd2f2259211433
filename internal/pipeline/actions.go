package pipeline

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/actions"
	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/queue"
	"github.com/idudko/mendel/internal/values"
)

type actionParams struct {
	action actions.Action
	params []*values.MetricData
}

// ActionsHandler runs the actions subscribed to changed values and forwards
// their results. It is the only caller of Action.Run.
type ActionsHandler struct {
	actions *actions.Store
	store   *values.Store
	in      *queue.Queue[values.MetricData]
	out     *queue.Queue[actions.Result]
	spins   int
	metrics *metrics.Metrics
	now     func() time.Time

	pending []actionParams
	index   map[actions.Action]int
	results actions.Results
}

// NewActionsHandler returns an actions stage reading changed values from in
// and forwarding results to out.
func NewActionsHandler(as *actions.Store, store *values.Store, in *queue.Queue[values.MetricData], out *queue.Queue[actions.Result], spins int, m *metrics.Metrics) *ActionsHandler {
	return &ActionsHandler{
		actions: as,
		store:   store,
		in:      in,
		out:     out,
		spins:   spins,
		metrics: m,
		now:     time.Now,
		index:   make(map[actions.Action]int),
	}
}

// Run processes batches until ctx is done and the input queue is drained.
func (h *ActionsHandler) Run(ctx context.Context) {
	log.Info().Int("actions", h.actions.Len()).Msg("actions handler started")
	runStage(ctx, h.in, h.spins, h.process)
	log.Info().Msg("actions handler stopped")
}

func (h *ActionsHandler) process(batch []values.MetricData) {
	h.metrics.QueueDepth(metrics.QueueActions, h.in.Len())
	start := time.Now()

	for i := range batch {
		d := &batch[i]
		h.actions.Find(func(subscribed []actions.Action) {
			for _, a := range subscribed {
				h.add(a, d)
			}
		}, d.ID)
	}
	if len(h.pending) == 0 {
		return
	}

	ts := h.now()
	for i := range h.pending {
		p := &h.pending[i]
		slices.SortFunc(p.params, func(x, y *values.MetricData) int { return x.ID.Compare(y.ID) })
		p.action.Run(p.params, &h.results, h.store, ts)
		h.metrics.ActionRun(p.action.ID())
	}
	h.reset()
	h.metrics.ActionBatch(time.Since(start))

	if h.results.Len() == 0 {
		return
	}
	if !h.out.SwapIn(&h.results.Items) {
		h.metrics.QueueRejected(metrics.QueuePublish)
		log.Warn().Int("results", h.results.Len()).Msg("publish queue full, dropping results")
	}
	h.results.Reset()
}

// add queues d for a, keeping one entry per metric id. A later value for the
// same id replaces the earlier one.
func (h *ActionsHandler) add(a actions.Action, d *values.MetricData) {
	idx, ok := h.index[a]
	if !ok {
		idx = len(h.pending)
		h.index[a] = idx
		if idx < cap(h.pending) {
			h.pending = h.pending[:idx+1]
			h.pending[idx].action = a
		} else {
			h.pending = append(h.pending, actionParams{action: a})
		}
	}

	p := &h.pending[idx]
	for j, existing := range p.params {
		if existing.ID == d.ID {
			p.params[j] = d
			return
		}
	}
	p.params = append(p.params, d)
}

func (h *ActionsHandler) reset() {
	for i := range h.pending {
		clear(h.pending[i].params)
		h.pending[i].params = h.pending[i].params[:0]
		h.pending[i].action = nil
	}
	h.pending = h.pending[:0]
	clear(h.index)
}
