package ingest

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/values"
)

// Metric turns a property extracted from a message into MetricData for one
// configured value id.
type Metric struct {
	id           string
	property     string
	labelActions []LabelAction
	valueActions []ValueAction
}

// NewMetric returns a metric publishing property under id.
func NewMetric(id, property string, labelActions []LabelAction, valueActions []ValueAction) *Metric {
	return &Metric{
		id:           id,
		property:     property,
		labelActions: labelActions,
		valueActions: valueActions,
	}
}

// ID returns the configured value id.
func (m *Metric) ID() string { return m.id }

// Property returns the message property the metric reads.
func (m *Metric) Property() string { return m.property }

// Event appends the MetricData for value to out. The location label, once
// label actions have run, becomes the location of the metric id.
func (m *Metric) Event(value string, valueType values.ValueType, src *values.Labels, levels []string, ts int64, out []values.MetricData) []values.MetricData {
	out, d := values.Extend(out)
	d.ID = values.NewMetricID(m.id)
	d.Value = value
	d.Type = valueType
	d.Timestamp = ts
	d.Labels.CopyFrom(src)

	for _, a := range m.labelActions {
		a.Apply(src, levels, &d.Labels)
	}
	for _, a := range m.valueActions {
		a.Apply(d)
	}
	if loc, ok := d.Labels.Get(values.LabelLocation); ok {
		d.ID.Location = loc
	}

	if e := log.Debug(); e.Enabled() {
		e.Str("id", m.id).Str("property", m.property).Str("value", d.Value).
			Dict("labels", labelsDict(&d.Labels)).Msg("metric event")
	}
	return out
}

func labelsDict(l *values.Labels) *zerolog.Event {
	dict := zerolog.Dict()
	l.Visit(func(name, value string) { dict.Str(name, value) })
	return dict
}
