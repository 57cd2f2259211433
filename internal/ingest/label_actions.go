package ingest

import (
	"github.com/idudko/mendel/internal/values"
)

// Label action names as they appear in configuration.
const (
	LabelActionCopy        = "copy"
	LabelActionDrop        = "drop"
	LabelActionKeep        = "keep"
	LabelActionReplacePath = "replace_path"
)

// LabelAction rewrites the labels of a metric. src holds the labels of the
// incoming message, levels its subject tokens and dst the labels being built.
type LabelAction interface {
	Apply(src *values.Labels, levels []string, dst *values.Labels)
}

// CopyLabel copies the source label into the target label.
type CopyLabel struct {
	Source string
	Target string
}

func (a CopyLabel) Apply(src *values.Labels, _ []string, dst *values.Labels) {
	if v, ok := src.Get(a.Source); ok {
		dst.Set(a.Target, v)
	}
}

// DropLabel removes the target label.
type DropLabel struct {
	Target string
}

func (a DropLabel) Apply(_ *values.Labels, _ []string, dst *values.Labels) {
	dst.Delete(a.Target)
}

// KeepLabel removes every label except the target.
type KeepLabel struct {
	Target string
}

func (a KeepLabel) Apply(_ *values.Labels, _ []string, dst *values.Labels) {
	v, ok := dst.Get(a.Target)
	dst.Reset()
	if ok {
		dst.Set(a.Target, v)
	}
}

// PathReplacement sets Value when the subject matches Pattern.
type PathReplacement struct {
	Pattern []string
	Value   string
}

// ReplacePathLabel sets the target label from the first replacement whose
// pattern matches the message subject.
type ReplacePathLabel struct {
	Target  string
	Replace []PathReplacement
}

func (a ReplacePathLabel) Apply(_ *values.Labels, levels []string, dst *values.Labels) {
	for _, r := range a.Replace {
		if MatchLevels(r.Pattern, levels) {
			dst.Set(a.Target, r.Value)
			return
		}
	}
}
