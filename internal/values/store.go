package values

import (
	"math"
	"sync/atomic"

	"github.com/idudko/mendel/internal/trie"
)

// Cell is a float64 that can be read and written concurrently without locks.
// Go atomics are sequentially consistent, which covers the acquire/release
// pairing a reader and writer of one cell rely on. There is no atomicity
// across cells.
type Cell struct {
	bits atomic.Uint64
}

// Load returns the current value.
func (c *Cell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Store sets the value.
func (c *Cell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Swap sets the value and returns the previous one.
func (c *Cell) Swap(v float64) float64 {
	return math.Float64frombits(c.bits.Swap(math.Float64bits(v)))
}

// Store holds the live value of every configured metric. Its keyspace is
// fixed by StoreBuilder.Create; only cell contents change afterwards.
type Store struct {
	cells *trie.Automaton[*Cell]
}

// Find calls visitor with the cell of id. The id path is searched first and
// the location path, when set, below it.
func (s *Store) Find(visitor func(*Cell), id MetricID) bool {
	return s.cells.FindPath(func(c **Cell) { visitor(*c) }, id.ID, id.Location)
}

// FindString calls visitor with the cell registered under key.
func (s *Store) FindString(visitor func(*Cell), key string) bool {
	return s.cells.Find(func(c **Cell) { visitor(*c) }, key)
}

// Load returns the value of id.
func (s *Store) Load(id MetricID) (v float64, ok bool) {
	ok = s.Find(func(c *Cell) { v = c.Load() }, id)
	return v, ok
}

// Walk calls fn for every registered key.
func (s *Store) Walk(fn func(key string, c *Cell)) {
	s.cells.Walk(func(key string, c **Cell) { fn(key, *c) })
}

// Len returns the number of cells.
func (s *Store) Len() int {
	return s.cells.Len()
}

// StoreBuilder registers metric ids before the Store is created.
type StoreBuilder struct {
	cells *trie.Builder[*Cell]
}

// NewStoreBuilder returns an empty builder.
func NewStoreBuilder() *StoreBuilder {
	return &StoreBuilder{cells: trie.NewBuilder[*Cell]()}
}

// Add registers a zero valued cell for id. Adding an id twice is a no-op.
func (b *StoreBuilder) Add(id string) {
	if slot, added := b.cells.Add(id, nil); added {
		*slot = &Cell{}
	}
}

// Create freezes the registered ids into a Store.
func (b *StoreBuilder) Create() *Store {
	return &Store{cells: b.cells.Create()}
}
