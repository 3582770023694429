package identity

import (
	"context"
	"fmt"
	"strings"

	"safestep/internal/intake/models"
	"safestep/internal/intake/store"
	"safestep/pkg/domain"
	"safestep/pkg/email"
	"safestep/pkg/platform/sentinel"
)

// Resolver finds the contact keyed by the deployment's identifying attribute.
type Resolver struct {
	store     store.Store
	table     string
	index     string
	attribute string
}

// NewResolver builds a resolver over the contact table. attribute is
// models.AttrEmail or models.AttrPhone; index is the secondary index on it.
func NewResolver(st store.Store, table, index, attribute string) *Resolver {
	return &Resolver{store: st, table: table, index: index, attribute: attribute}
}

// Attribute returns the identifying attribute name.
func (r *Resolver) Attribute() string {
	return r.attribute
}

// Resolve returns the ECID of the first contact whose identifying attribute
// equals value. It returns an error wrapping sentinel.ErrNotFound when no
// contact matches; store failures are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, value string) (domain.ECID, error) {
	key := Normalize(r.attribute, value)
	items, err := r.store.Query(ctx, r.table, store.KeyCondition{
		Index:     r.index,
		Attribute: r.attribute,
		Value:     key,
	})
	if err != nil {
		return "", fmt.Errorf("resolve contact by %s: %w", r.attribute, err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("contact with %s %q: %w", r.attribute, key, sentinel.ErrNotFound)
	}

	ecid, ok := items[0][models.AttrECID]
	if !ok || ecid == "" {
		return "", fmt.Errorf("contact item for %s %q has no %s", r.attribute, key, models.AttrECID)
	}
	return domain.ECID(ecid), nil
}

// Normalize applies the storage form of an identifying value: emails are
// trimmed and lower-cased, anything else is only trimmed.
func Normalize(attribute, value string) string {
	if attribute == models.AttrEmail {
		return email.Normalize(value)
	}
	return strings.TrimSpace(value)
}
