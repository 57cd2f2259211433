// Package trie implements the identifier automaton used to address metrics.
//
// Keys are ':' separated paths such as "sensor:kitchen:temp". A Builder collects
// keys and payloads; Create freezes them into an Automaton backed by flat slices
// whose edges are kept sorted for binary search. An Automaton is read-only and
// safe for concurrent use.
package trie

import (
	"slices"
	"strings"
)

// Separator splits keys into edge labels.
const Separator = ':'

type builderNode[T any] struct {
	children map[string]*builderNode[T]
	payload  *T
}

// Builder accumulates keys before they are frozen into an Automaton.
// It is not safe for concurrent use.
type Builder[T any] struct {
	root builderNode[T]
	size int
}

// NewBuilder returns an empty Builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

// Add registers payload under key and returns the payload slot.
//
// Adding a key that already exists keeps the first payload and returns its
// slot with added set to false.
func (b *Builder[T]) Add(key string, payload T) (slot *T, added bool) {
	n := &b.root
	forEachLabel(key, func(label string) bool {
		if n.children == nil {
			n.children = make(map[string]*builderNode[T])
		}
		child, ok := n.children[label]
		if !ok {
			child = &builderNode[T]{}
			n.children[label] = child
		}
		n = child
		return true
	})

	if n.payload != nil {
		return n.payload, false
	}

	p := payload
	n.payload = &p
	b.size++
	return n.payload, true
}

// Len returns the number of keys holding a payload.
func (b *Builder[T]) Len() int {
	return b.size
}

// Create freezes the builder into an Automaton. The builder must not be used
// afterwards.
func (b *Builder[T]) Create() *Automaton[T] {
	a := &Automaton[T]{
		nodes: make([]node, 1),
		data:  make([]T, 0, b.size),
		keys:  make([]string, 0, b.size),
	}
	a.freeze(0, &b.root, nil)
	b.root = builderNode[T]{}
	b.size = 0
	return a
}

func (a *Automaton[T]) freeze(idx int32, bn *builderNode[T], path []string) {
	a.nodes[idx].data = -1
	if bn.payload != nil {
		a.nodes[idx].data = int32(len(a.data))
		a.data = append(a.data, *bn.payload)
		a.keys = append(a.keys, strings.Join(path, string(Separator)))
	}

	if len(bn.children) == 0 {
		return
	}

	labels := make([]string, 0, len(bn.children))
	for label := range bn.children {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	edges := make([]edge, len(labels))
	for i, label := range labels {
		edges[i] = edge{label: label, next: int32(len(a.nodes))}
		a.nodes = append(a.nodes, node{})
	}
	a.nodes[idx].edges = edges

	for i, label := range labels {
		a.freeze(edges[i].next, bn.children[label], append(path, label))
	}
}

type edge struct {
	label string
	next  int32
}

type node struct {
	edges []edge
	data  int32
}

// Automaton is the frozen form of a Builder.
type Automaton[T any] struct {
	nodes []node
	data  []T
	keys  []string
}

// Find looks up key and calls visitor with its payload. It returns false,
// without calling visitor, when key is not present.
func (a *Automaton[T]) Find(visitor func(*T), key string) bool {
	return a.visit(visitor, a.descend(0, key))
}

// FindPath looks up primary and then continues from that node with secondary.
// An empty secondary stays on the primary node.
func (a *Automaton[T]) FindPath(visitor func(*T), primary, secondary string) bool {
	idx := a.descend(0, primary)
	if idx >= 0 && secondary != "" {
		idx = a.descend(idx, secondary)
	}
	return a.visit(visitor, idx)
}

// Walk calls fn for every key in lexical label order.
func (a *Automaton[T]) Walk(fn func(key string, payload *T)) {
	for i := range a.data {
		fn(a.keys[i], &a.data[i])
	}
}

// Len returns the number of keys.
func (a *Automaton[T]) Len() int {
	return len(a.data)
}

// Empty reports whether the automaton holds no payloads.
func (a *Automaton[T]) Empty() bool {
	return len(a.data) == 0
}

func (a *Automaton[T]) visit(visitor func(*T), idx int32) bool {
	if idx < 0 {
		return false
	}
	d := a.nodes[idx].data
	if d < 0 {
		return false
	}
	visitor(&a.data[d])
	return true
}

func (a *Automaton[T]) descend(idx int32, key string) int32 {
	if len(a.nodes) == 0 {
		return -1
	}
	forEachLabel(key, func(label string) bool {
		edges := a.nodes[idx].edges
		pos, found := slices.BinarySearchFunc(edges, label, func(e edge, l string) int {
			return strings.Compare(e.label, l)
		})
		if !found {
			idx = -1
			return false
		}
		idx = edges[pos].next
		return true
	})
	return idx
}

// forEachLabel calls fn for each Separator delimited label of key. An empty key
// has no labels.
func forEachLabel(key string, fn func(label string) bool) {
	if key == "" {
		return
	}
	for {
		i := strings.IndexByte(key, Separator)
		if i < 0 {
			fn(key)
			return
		}
		if !fn(key[:i]) {
			return
		}
		key = key[i+1:]
	}
}
