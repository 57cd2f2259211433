// Package configure assembles the stores, handlers and routes described by a
// config.Config.
//
// Definitions that cannot be built are skipped with a warning so a partly
// broken configuration still runs what it can.
package configure

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/actions"
	"github.com/idudko/mendel/internal/config"
	"github.com/idudko/mendel/internal/ingest"
	"github.com/idudko/mendel/internal/values"
)

// ActionKalman is the only supported action type.
const ActionKalman = "kalman"

var (
	ErrNoRoutes  = errors.New("no topic routes could be built")
	ErrNoActions = errors.New("no actions could be built")
)

// Runtime is everything the pipeline and transports need.
type Runtime struct {
	Values  *values.Store
	Actions *actions.Store
	Routes  []*ingest.Route
}

// Build assembles a Runtime from cfg.
func Build(cfg *config.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	valuesBuilder := values.NewStoreBuilder()
	actionsBuilder := actions.NewStoreBuilder()

	metrics := Values(cfg.Values, valuesBuilder)
	handlers := Handlers(cfg.Handlers, metrics)
	routes := Routes(cfg.Topics, handlers)
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	Actions(cfg.Actions, actionsBuilder, valuesBuilder)
	as := actionsBuilder.Create()
	if as.Len() == 0 {
		return nil, ErrNoActions
	}

	rt := &Runtime{
		Values:  valuesBuilder.Create(),
		Actions: as,
		Routes:  routes,
	}
	log.Info().
		Int("values", rt.Values.Len()).
		Int("actions", as.Len()).
		Int("routes", len(routes)).
		Msg("configuration built")
	return rt, nil
}

// MetricsMap holds the metrics fed by each handler id, keyed by property.
type MetricsMap map[string]map[string][]*ingest.Metric

// Values builds the metrics of every configured value and registers each
// value id in the value store. A value lists a handler at most once.
func Values(defs []config.Value, vb *values.StoreBuilder) MetricsMap {
	metrics := MetricsMap{}
	for _, def := range defs {
		if def.Value == "" {
			log.Warn().Msg("value without id, skipping")
			continue
		}
		vb.Add(def.Value)
		log.Info().Str("value", def.Value).Msg("configuring value")

		seen := make([]string, 0, len(def.Handlers))
		for _, h := range def.Handlers {
			if h.HandlerID == "" {
				continue
			}
			if slices.Contains(seen, h.HandlerID) {
				log.Warn().Str("value", def.Value).Str("handler", h.HandlerID).Msg("handler listed twice, skipping")
				continue
			}
			seen = append(seen, h.HandlerID)

			m := ingest.NewMetric(def.Value, h.Property, LabelActions(h.LabelActions), ValueActions(h.ValueActions))
			byProperty, ok := metrics[h.HandlerID]
			if !ok {
				byProperty = map[string][]*ingest.Metric{}
				metrics[h.HandlerID] = byProperty
			}
			byProperty[h.Property] = append(byProperty[h.Property], m)
		}
	}
	return metrics
}

// LabelActions converts label action definitions. Unknown or incomplete
// actions are skipped.
func LabelActions(defs []config.LabelAction) []ingest.LabelAction {
	var out []ingest.LabelAction
	for _, def := range defs {
		var a ingest.LabelAction
		switch def.Action {
		case ingest.LabelActionCopy:
			if def.Source != "" && def.Target != "" {
				a = ingest.CopyLabel{Source: def.Source, Target: def.Target}
			}
		case ingest.LabelActionDrop:
			if def.Target != "" {
				a = ingest.DropLabel{Target: def.Target}
			}
		case ingest.LabelActionKeep:
			if def.Target != "" {
				a = ingest.KeepLabel{Target: def.Target}
			}
		case ingest.LabelActionReplacePath:
			if def.Target != "" {
				r := ingest.ReplacePathLabel{Target: def.Target}
				for _, rep := range def.Replace {
					r.Replace = append(r.Replace, ingest.PathReplacement{
						Pattern: ingest.Levels(ingest.TopicToSubject(rep.Pattern)),
						Value:   rep.Value,
					})
				}
				a = r
			}
		default:
			log.Warn().Str("action", def.Action).Msg("unrecognized label action")
			continue
		}
		if a == nil {
			log.Warn().Str("action", def.Action).Msg("incomplete label action, skipping")
			continue
		}
		out = append(out, a)
	}
	return out
}

// ValueActions converts value action definitions. keep is a no-op and is not
// added; a switch needs at least one case and a default.
func ValueActions(defs []config.ValueAction) []ingest.ValueAction {
	var out []ingest.ValueAction
	for _, def := range defs {
		switch def.Action {
		case "", ingest.ValueActionKeep:
		case ingest.ValueActionSwitch:
			s := ingest.SwitchValue{Cases: map[string]string{}}
			hasDefault := false
			for _, c := range def.Values {
				if c.Default != nil && !hasDefault {
					s.Default = *c.Default
					hasDefault = true
				}
				if c.Input != nil && c.Output != nil {
					s.Cases[*c.Input] = *c.Output
				}
			}
			if !hasDefault || len(s.Cases) == 0 {
				log.Warn().Msg("switch needs cases and a default, skipping")
				continue
			}
			out = append(out, s)
		default:
			log.Warn().Str("action", def.Action).Msg("unrecognized value action")
		}
	}
	return out
}

// Handlers builds every handler that feeds at least one metric.
func Handlers(defs []config.Handler, metrics MetricsMap) map[string]ingest.Handler {
	out := make(map[string]ingest.Handler, len(defs))
	for _, def := range defs {
		if _, dup := out[def.ID]; dup {
			log.Warn().Str("handler", def.ID).Msg("duplicate handler, skipping")
			continue
		}
		h, err := handler(def, metrics[def.ID])
		if err != nil {
			log.Warn().Err(err).Str("handler", def.ID).Msg("handler not added")
			continue
		}
		if h == nil {
			continue
		}
		out[def.ID] = h
		log.Info().Str("handler", def.ID).Str("type", def.Type).Msg("handler added")
	}
	return out
}

func handler(def config.Handler, byProperty map[string][]*ingest.Metric) (ingest.Handler, error) {
	switch def.Type {
	case ingest.HandlerJSON:
		props := make([]ingest.JSONProperty, 0, len(def.Properties))
		seen := make([]string, 0, len(def.Properties))
		for _, p := range def.Properties {
			if p.Pointer == "" || p.Name == "" || slices.Contains(seen, p.Name) {
				continue
			}
			seen = append(seen, p.Name)
			props = append(props, ingest.JSONProperty{
				Pointer:  p.Pointer,
				Property: p.Name,
				Metrics:  byProperty[p.Name],
			})
		}
		return ingest.NewJSONHandler(def.ID, props)
	case ingest.HandlerValue:
		var all []*ingest.Metric
		for _, ms := range byProperty {
			all = append(all, ms...)
		}
		slices.SortFunc(all, func(a, b *ingest.Metric) int { return cmp.Compare(a.ID(), b.ID()) })
		return ingest.NewValueHandler(def.ID, all)
	case ingest.HandlerText:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown handler type %q", def.Type)
	}
}

// Routes binds each topic subscription to its known handlers. Topics without
// any are dropped.
func Routes(defs []config.Topic, handlers map[string]ingest.Handler) []*ingest.Route {
	var routes []*ingest.Route
	for _, def := range defs {
		subject := ingest.TopicToSubject(def.Subject)
		if subject == "" {
			continue
		}
		var hs []ingest.Handler
		for _, id := range def.Handlers {
			h, ok := handlers[id]
			if !ok {
				log.Warn().Str("subject", subject).Str("handler", id).Msg("unknown handler for topic")
				continue
			}
			if !slices.Contains(hs, h) {
				hs = append(hs, h)
			}
		}
		if len(hs) == 0 {
			log.Warn().Str("subject", subject).Msg("topic has no handlers, skipping")
			continue
		}
		routes = append(routes, ingest.NewRoute(subject, hs))
	}
	return routes
}

// Actions builds every action and registers its inputs and outputs in the
// value store.
func Actions(defs []config.Action, ab *actions.StoreBuilder, vb *values.StoreBuilder) {
	for _, def := range defs {
		if def.Type != ActionKalman {
			log.Warn().Str("action", def.ActionID).Str("type", def.Type).Msg("unknown action type, skipping")
			continue
		}

		options := make([]actions.KalmanOption, 0, len(def.Values))
		for _, v := range def.Values {
			if v.In == "" || v.Out == "" {
				continue
			}
			options = append(options, actions.KalmanOption{Input: v.In, Output: v.Out, Accuracy: v.Accuracy})
		}

		a, err := actions.NewKalmanAction(def.ActionID, ingest.TopicToSubject(def.Output.Topic), def.Output.ValueID, options,
			actions.KalmanConfig{ProcessNoise: def.ProcessNoise, InitialCovariance: def.InitialCovariance})
		if err != nil {
			log.Warn().Err(err).Msg("action not added")
			continue
		}

		inputs := a.Inputs()
		for _, in := range inputs {
			vb.Add(in)
		}
		for _, out := range a.Outputs() {
			vb.Add(out)
		}
		ab.Add(a, inputs)
	}
}
