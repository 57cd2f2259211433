package values

import (
	"slices"
	"strings"
)

type label struct {
	name  string
	value string
}

// Labels is a small set of name/value pairs kept sorted by name.
// The zero value is an empty set ready to use.
type Labels struct {
	items []label
}

func (l *Labels) search(name string) (int, bool) {
	return slices.BinarySearchFunc(l.items, name, func(item label, n string) int {
		return strings.Compare(item.name, n)
	})
}

// Set adds or replaces the label name.
func (l *Labels) Set(name, value string) {
	if i, ok := l.search(name); ok {
		l.items[i].value = value
	} else {
		l.items = slices.Insert(l.items, i, label{name: name, value: value})
	}
}

// Get returns the value of name and whether it is set.
func (l *Labels) Get(name string) (string, bool) {
	if i, ok := l.search(name); ok {
		return l.items[i].value, true
	}
	return "", false
}

// Delete removes name if present.
func (l *Labels) Delete(name string) {
	if i, ok := l.search(name); ok {
		l.items = slices.Delete(l.items, i, i+1)
	}
}

// Len returns the number of labels.
func (l *Labels) Len() int {
	return len(l.items)
}

// Visit calls fn for each label in name order.
func (l *Labels) Visit(fn func(name, value string)) {
	for _, item := range l.items {
		fn(item.name, item.value)
	}
}

// CopyFrom replaces the receiver's labels with other's, reusing storage.
func (l *Labels) CopyFrom(other *Labels) {
	l.items = append(l.items[:0], other.items...)
}

// Reset removes all labels and keeps the allocated storage.
func (l *Labels) Reset() {
	clear(l.items)
	l.items = l.items[:0]
}

// Equal reports whether both sets hold the same labels.
func (l *Labels) Equal(other *Labels) bool {
	return slices.Equal(l.items, other.items)
}
