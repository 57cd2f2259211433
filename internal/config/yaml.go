package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Property binds a JSON pointer in a payload to a property name.
type Property struct {
	Pointer string
	Name    string
}

// Properties is written either as a list of top level member names or as a
// mapping from JSON pointer to property name.
type Properties []Property

func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	*p = (*p)[:0]
	switch node.Kind {
	case yaml.SequenceNode:
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: property must be a scalar", n.Line)
			}
			name := strings.TrimSpace(n.Value)
			*p = append(*p, Property{Pointer: name, Name: name})
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			*p = append(*p, Property{
				Pointer: strings.TrimSpace(node.Content[i].Value),
				Name:    strings.TrimSpace(node.Content[i+1].Value),
			})
		}
	default:
		return fmt.Errorf("line %d: properties must be a sequence or a mapping", node.Line)
	}
	return nil
}

// Replacement maps a subject pattern to a label value.
type Replacement struct {
	Pattern string
	Value   string
}

// Replacements keeps the order the patterns are written in; the first
// matching pattern wins.
type Replacements []Replacement

func (r *Replacements) UnmarshalYAML(node *yaml.Node) error {
	*r = (*r)[:0]
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			*r = append(*r, Replacement{
				Pattern: strings.TrimSpace(node.Content[i].Value),
				Value:   strings.TrimSpace(node.Content[i+1].Value),
			})
		}
	case yaml.SequenceNode:
		for _, n := range node.Content {
			var item struct {
				Pattern string `yaml:"pattern"`
				Value   string `yaml:"value"`
			}
			if err := n.Decode(&item); err != nil {
				return err
			}
			*r = append(*r, Replacement{
				Pattern: strings.TrimSpace(item.Pattern),
				Value:   strings.TrimSpace(item.Value),
			})
		}
	default:
		return fmt.Errorf("line %d: replace must be a mapping or a sequence", node.Line)
	}
	return nil
}

// KalmanValue maps a filter input to an output property. Accuracy is zero
// when not set.
type KalmanValue struct {
	In       string  `yaml:"in"`
	Out      string  `yaml:"out"`
	Accuracy float64 `yaml:"accuracy"`
}

// KalmanValues is written either as a mapping from input to output or as a
// list of in/out/accuracy entries.
type KalmanValues []KalmanValue

func (k *KalmanValues) UnmarshalYAML(node *yaml.Node) error {
	*k = (*k)[:0]
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			*k = append(*k, KalmanValue{
				In:  strings.TrimSpace(node.Content[i].Value),
				Out: strings.TrimSpace(node.Content[i+1].Value),
			})
		}
	case yaml.SequenceNode:
		for _, n := range node.Content {
			var v KalmanValue
			if err := n.Decode(&v); err != nil {
				return err
			}
			v.In = strings.TrimSpace(v.In)
			v.Out = strings.TrimSpace(v.Out)
			*k = append(*k, v)
		}
	default:
		return fmt.Errorf("line %d: values must be a mapping or a sequence", node.Line)
	}
	return nil
}
