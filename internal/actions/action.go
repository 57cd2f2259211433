// Package actions holds the stateful computations driven by metric changes
// and the store that maps metric ids to the actions subscribed to them.
package actions

import (
	"time"

	"github.com/idudko/mendel/internal/values"
)

// Action is a stateful computation subscribed to one or more metrics.
//
// Run is invoked with the changed metrics relevant to the action, sorted by
// id and without duplicates. Implementations append what they produce to
// results. Run is never called concurrently for the same action.
type Action interface {
	ID() string
	Name() string
	Run(params []*values.MetricData, results *Results, store *values.Store, ts time.Time)
}

// Result is a body to be published on a topic.
type Result struct {
	Topic string
	Data  []byte
}

// Results collects the results of one actions cycle. Data buffers of reset
// entries are kept and handed back to actions on the next cycle.
type Results struct {
	Items []Result
}

// SwapDataBack appends a result with res's topic and data. res.Data is
// replaced with an empty buffer the action can reuse.
func (r *Results) SwapDataBack(res *Result) {
	n := len(r.Items)
	if n < cap(r.Items) {
		r.Items = r.Items[:n+1]
	} else {
		r.Items = append(r.Items, Result{})
	}

	last := &r.Items[n]
	last.Topic = res.Topic
	last.Data, res.Data = res.Data, last.Data[:0]
}

// Len returns the number of results.
func (r *Results) Len() int {
	return len(r.Items)
}

// Reset empties r and keeps the data buffers.
func (r *Results) Reset() {
	r.Items = r.Items[:0]
}
