// Package ingest turns transport messages into metric data for the pipeline.
//
// A Router holds one Route per subscribed subject pattern. Each route runs its
// handlers over a message, collects the produced MetricData into a pooled
// batch and writes the batch to the pipeline.
package ingest

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/values"
	"github.com/idudko/mendel/pkg/pool"
)

// LabelTopic is set on every message to its subject.
const LabelTopic = "topic"

// Writer accepts batches of metric data.
type Writer interface {
	Write(batch *[]values.MetricData) bool
}

// Route binds a subject pattern to the handlers of messages on it.
type Route struct {
	pattern  string
	levels   []string
	handlers []Handler
}

// NewRoute returns a route for pattern.
func NewRoute(pattern string, handlers []Handler) *Route {
	return &Route{pattern: pattern, levels: Levels(pattern), handlers: handlers}
}

// Pattern returns the subject pattern of the route.
func (r *Route) Pattern() string { return r.pattern }

// Handlers returns the handlers run for the route.
func (r *Route) Handlers() []Handler { return r.handlers }

// Matches reports whether subject is routed here.
func (r *Route) Matches(levels []string) bool {
	return MatchLevels(r.levels, levels)
}

// Router dispatches messages to the routes matching their subject.
type Router struct {
	routes  []*Route
	out     Writer
	metrics *metrics.Metrics
	batches *pool.Pool[*values.Batch]
	now     func() time.Time
}

// NewRouter returns a router writing to out. m may be nil.
func NewRouter(routes []*Route, out Writer, m *metrics.Metrics) *Router {
	return &Router{
		routes:  routes,
		out:     out,
		metrics: m,
		batches: pool.New(func() *values.Batch { return &values.Batch{} }),
		now:     time.Now,
	}
}

// Routes returns the configured routes.
func (r *Router) Routes() []*Route { return r.routes }

// Dispatch runs every route matching subject over payload and writes the
// result. It returns the number of metric data records produced.
func (r *Router) Dispatch(source, subject string, payload []byte) int {
	levels := Levels(subject)
	var matched []*Route
	for _, route := range r.routes {
		if route.Matches(levels) {
			matched = append(matched, route)
		}
	}
	return r.dispatch(source, subject, levels, payload, matched...)
}

// DispatchRoute runs a single route over payload and writes the result.
func (r *Router) DispatchRoute(route *Route, source, subject string, payload []byte) int {
	return r.dispatch(source, subject, Levels(subject), payload, route)
}

func (r *Router) dispatch(source, subject string, levels []string, payload []byte, routes ...*Route) int {
	if len(routes) == 0 {
		return 0
	}

	batch := r.batches.Get()
	defer r.batches.Put(batch)

	var src values.Labels
	src.Set(LabelTopic, subject)
	ts := r.now().UnixNano()

	for _, route := range routes {
		for _, h := range route.handlers {
			batch.Items = h.Event(payload, &src, levels, ts, batch.Items)
		}
	}

	n := len(batch.Items)
	if n == 0 {
		return 0
	}
	r.metrics.Ingested(source, n)
	if !r.out.Write(&batch.Items) {
		log.Warn().Str("subject", subject).Int("values", n).Msg("cache queue full, dropping message")
	}
	return n
}
