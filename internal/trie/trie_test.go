package trie

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomaton_FindInsertedKeys(t *testing.T) {
	keys := []string{"a", "a:b", "a:b:c", "sensor:temp", "sensor:humidity", "x:y:z"}

	b := NewBuilder[int]()
	for i, k := range keys {
		_, added := b.Add(k, i)
		require.True(t, added, k)
	}
	a := b.Create()
	require.Equal(t, len(keys), a.Len())

	for i, k := range keys {
		var got int
		found := a.Find(func(v *int) { got = *v }, k)
		assert.True(t, found, k)
		assert.Equal(t, i, got, k)
	}
}

func TestAutomaton_MissingKeys(t *testing.T) {
	b := NewBuilder[string]()
	b.Add("a:b:c", "abc")
	a := b.Create()

	tests := []struct {
		name string
		key  string
	}{
		{name: "interior node without payload", key: "a:b"},
		{name: "unknown edge", key: "a:x"},
		{name: "longer than any path", key: "a:b:c:d"},
		{name: "prefix of label", key: "a:b:"},
		{name: "partial label", key: "a:b:cc"},
		{name: "empty key", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			found := a.Find(func(*string) { called = true }, tt.key)
			assert.False(t, found)
			assert.False(t, called)
		})
	}
}

func TestBuilder_AddIsIdempotent(t *testing.T) {
	b := NewBuilder[[]string]()

	first, added := b.Add("a:b", []string{"first"})
	require.True(t, added)

	second, added := b.Add("a:b", []string{"second"})
	assert.False(t, added)
	assert.Same(t, first, second)
	assert.Equal(t, 1, b.Len())

	*second = append(*second, "appended")

	a := b.Create()
	var got []string
	require.True(t, a.Find(func(v *[]string) { got = *v }, "a:b"))
	assert.Equal(t, []string{"first", "appended"}, got)
}

func TestAutomaton_FindPath(t *testing.T) {
	b := NewBuilder[string]()
	b.Add("sensor:temp", "any location")
	b.Add("sensor:temp:kitchen", "kitchen")
	b.Add("sensor:temp:garage:north", "garage north")
	a := b.Create()

	tests := []struct {
		name      string
		primary   string
		secondary string
		want      string
		found     bool
	}{
		{name: "no location", primary: "sensor:temp", want: "any location", found: true},
		{name: "location", primary: "sensor:temp", secondary: "kitchen", want: "kitchen", found: true},
		{name: "location path", primary: "sensor:temp", secondary: "garage:north", want: "garage north", found: true},
		{name: "unknown location", primary: "sensor:temp", secondary: "attic"},
		{name: "unknown primary", primary: "sensor:pressure", secondary: "kitchen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			found := a.FindPath(func(v *string) { got = *v }, tt.primary, tt.secondary)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutomaton_Walk(t *testing.T) {
	b := NewBuilder[int]()
	b.Add("b:a", 1)
	b.Add("a", 2)
	b.Add("a:c", 3)
	a := b.Create()

	var keys []string
	a.Walk(func(key string, v *int) {
		keys = append(keys, fmt.Sprintf("%s=%d", key, *v))
	})
	assert.Equal(t, []string{"a=2", "a:c=3", "b:a=1"}, keys)
}

func TestAutomaton_EmptyBuilder(t *testing.T) {
	a := NewBuilder[int]().Create()
	assert.True(t, a.Empty())
	assert.False(t, a.Find(func(*int) {}, "a"))
}

func BenchmarkAutomaton_Find(b *testing.B) {
	builder := NewBuilder[int]()
	for i := range 1000 {
		builder.Add(fmt.Sprintf("site:%d:sensor:%d", i%10, i), i)
	}
	a := builder.Create()

	b.ResetTimer()
	for b.Loop() {
		a.Find(func(*int) {}, "site:7:sensor:517")
	}
}
