package ingest

import "github.com/idudko/mendel/internal/values"

// Value action names as they appear in configuration.
const (
	ValueActionKeep   = "keep"
	ValueActionSwitch = "switch"
)

// ValueAction rewrites the raw value of a metric.
type ValueAction interface {
	Apply(d *values.MetricData)
}

// SwitchValue maps raw values onto replacements. Values without a case are
// replaced with Default.
type SwitchValue struct {
	Cases   map[string]string
	Default string
}

func (a SwitchValue) Apply(d *values.MetricData) {
	if v, ok := a.Cases[d.Value]; ok {
		d.Value = v
		return
	}
	d.Value = a.Default
}
