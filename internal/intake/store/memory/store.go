package memory

import (
	"context"
	"fmt"
	"sync"

	"safestep/internal/intake/store"
)

// Store keeps items in memory for tests and replay dry-runs. Queries scan the
// table; index names are ignored.
type Store struct {
	mu      sync.RWMutex
	tables  map[string][]store.Item
	batches int
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{tables: make(map[string][]store.Item)}
}

func (s *Store) Query(ctx context.Context, table string, cond store.KeyCondition) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Item
	for _, item := range s.tables[table] {
		if item[cond.Attribute] == cond.Value {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (s *Store) BatchWrite(ctx context.Context, writes map[string][]store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for table, items := range writes {
		if len(items) == 0 {
			return fmt.Errorf("batch write for table %q has no items", table)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for table, items := range writes {
		for _, item := range items {
			s.tables[table] = append(s.tables[table], item.Clone())
		}
	}
	s.batches++
	return nil
}

// Items returns a copy of everything stored in table, in write order.
func (s *Store) Items(table string) []store.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Item, 0, len(s.tables[table]))
	for _, item := range s.tables[table] {
		out = append(out, item.Clone())
	}
	return out
}

// BatchCount reports how many successful BatchWrite calls the store served.
func (s *Store) BatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

// Put seeds a single item outside of a batch.
func (s *Store) Put(table string, item store.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], item.Clone())
}
