package actions

import (
	"slices"

	"github.com/idudko/mendel/internal/trie"
	"github.com/idudko/mendel/internal/values"
)

// Store maps metric ids to the actions subscribed to them. It owns every
// registered action; subscriber lists only refer to them.
type Store struct {
	subscribers *trie.Automaton[[]Action]
	actions     []Action
}

// Find calls visitor with the actions subscribed to id.
func (s *Store) Find(visitor func([]Action), id values.MetricID) bool {
	return s.subscribers.FindPath(func(a *[]Action) { visitor(*a) }, id.ID, id.Location)
}

// FindString calls visitor with the actions subscribed to key.
func (s *Store) FindString(visitor func([]Action), key string) bool {
	return s.subscribers.Find(func(a *[]Action) { visitor(*a) }, key)
}

// Actions returns every registered action in registration order.
func (s *Store) Actions() []Action {
	return s.actions
}

// Len returns the number of registered actions.
func (s *Store) Len() int {
	return len(s.actions)
}

// StoreBuilder collects actions and their inputs before the Store is frozen.
type StoreBuilder struct {
	subscribers *trie.Builder[[]Action]
	actions     []Action
}

// NewStoreBuilder returns an empty builder.
func NewStoreBuilder() *StoreBuilder {
	return &StoreBuilder{subscribers: trie.NewBuilder[[]Action]()}
}

// Add registers action once and subscribes it to every input. Repeated
// registrations of the same action or input are ignored.
func (b *StoreBuilder) Add(action Action, inputs []string) {
	if !slices.Contains(b.actions, action) {
		b.actions = append(b.actions, action)
	}

	for _, input := range inputs {
		slot, _ := b.subscribers.Add(input, nil)
		if !slices.Contains(*slot, action) {
			*slot = append(*slot, action)
		}
	}
}

// Create freezes the builder into a Store.
func (b *StoreBuilder) Create() *Store {
	return &Store{
		subscribers: b.subscribers.Create(),
		actions:     b.actions,
	}
}
