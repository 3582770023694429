package store

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Item is one stored record as a flat attribute map. Every driver persists
// string attributes only.
type Item map[string]string

// Clone returns an independent copy of the item.
func (i Item) Clone() Item {
	out := make(Item, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// KeyCondition selects items whose Attribute equals Value through the named
// secondary index. Drivers without named indexes (SQL, memory) ignore Index.
type KeyCondition struct {
	Index     string
	Attribute string
	Value     string
}

// Store is the storage capability the intake pipeline consumes: a single-key
// query on a secondary index and a multi-table batched write.
type Store interface {
	Query(ctx context.Context, table string, cond KeyCondition) ([]Item, error)
	// BatchWrite puts every item, keyed by table name. Callers must not pass
	// tables with no items.
	BatchWrite(ctx context.Context, writes map[string][]Item) error
}
