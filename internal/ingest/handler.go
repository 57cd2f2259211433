package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/values"
)

// Handler types as they appear in configuration.
const (
	HandlerJSON  = "json"
	HandlerText  = "text"
	HandlerValue = "value"
)

var ErrNoMetrics = errors.New("handler has no metrics")

// Handler extracts metric data from a message payload.
type Handler interface {
	ID() string
	Event(payload []byte, src *values.Labels, levels []string, ts int64, out []values.MetricData) []values.MetricData
}

// ValueHandler uses the whole payload as the value of each of its metrics.
type ValueHandler struct {
	id      string
	metrics []*Metric
}

// NewValueHandler returns a value handler feeding metrics.
func NewValueHandler(id string, metrics []*Metric) (*ValueHandler, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNoMetrics)
	}
	return &ValueHandler{id: id, metrics: metrics}, nil
}

func (h *ValueHandler) ID() string { return h.id }

func (h *ValueHandler) Event(payload []byte, src *values.Labels, levels []string, ts int64, out []values.MetricData) []values.MetricData {
	value := strings.TrimSpace(string(payload))
	for _, m := range h.metrics {
		out = m.Event(value, values.TypeUnknown, src, levels, ts, out)
	}
	return out
}

// JSONProperty binds a JSON pointer to the metrics reading it.
type JSONProperty struct {
	Pointer  string
	Property string
	Metrics  []*Metric
}

type jsonPointer struct {
	tokens  []string
	metrics []*Metric
}

// JSONHandler decodes a JSON document and feeds the values found at its
// pointers to their metrics. Numbers keep their original text.
type JSONHandler struct {
	id       string
	pointers []jsonPointer
}

// NewJSONHandler returns a JSON handler. Properties without metrics are
// ignored.
func NewJSONHandler(id string, properties []JSONProperty) (*JSONHandler, error) {
	h := &JSONHandler{id: id}
	for _, p := range properties {
		if len(p.Metrics) == 0 {
			continue
		}
		h.pointers = append(h.pointers, jsonPointer{
			tokens:  ParsePointer(p.Pointer),
			metrics: p.Metrics,
		})
	}
	if len(h.pointers) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNoMetrics)
	}
	return h, nil
}

func (h *JSONHandler) ID() string { return h.id }

func (h *JSONHandler) Event(payload []byte, src *values.Labels, levels []string, ts int64, out []values.MetricData) []values.MetricData {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		log.Debug().Err(err).Str("handler", h.id).Msg("json payload rejected")
		return out
	}

	for _, p := range h.pointers {
		node, ok := resolve(doc, p.tokens)
		if !ok {
			continue
		}
		value, valueType, ok := scalar(node)
		if !ok {
			continue
		}
		for _, m := range p.metrics {
			out = m.Event(value, valueType, src, levels, ts, out)
		}
	}
	return out
}

// ParsePointer splits a JSON pointer into unescaped reference tokens. A
// pointer without a leading '/' is treated as a single top level member.
func ParsePointer(pointer string) []string {
	pointer = strings.TrimSpace(pointer)
	if pointer == "" {
		return nil
	}
	if pointer[0] != '/' {
		return []string{pointer}
	}

	tokens := strings.Split(pointer[1:], "/")
	for i, t := range tokens {
		t = strings.ReplaceAll(t, "~1", "/")
		tokens[i] = strings.ReplaceAll(t, "~0", "~")
	}
	return tokens
}

func resolve(node any, tokens []string) (any, bool) {
	for _, t := range tokens {
		switch n := node.(type) {
		case map[string]any:
			next, ok := n[t]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			i, err := strconv.Atoi(t)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

func scalar(node any) (string, values.ValueType, bool) {
	switch v := node.(type) {
	case json.Number:
		s := v.String()
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return s, values.TypeInt, true
		}
		if _, err := strconv.ParseUint(s, 10, 64); err == nil {
			return s, values.TypeUInt, true
		}
		return s, values.TypeFloat, true
	case string:
		return v, values.TypeString, true
	case bool:
		return strconv.FormatBool(v), values.TypeBool, true
	default:
		return "", values.TypeUnknown, false
	}
}
