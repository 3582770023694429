package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and delivery
// adapters return these (optionally wrapped) so the intake pipeline can decide
// what a failure means for a record without knowing which driver produced it.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: no item matched the lookup
// - ErrConflict: a write collided with an existing item
// - ErrUnavailable: backing service temporarily unavailable
// - ErrPartialWrite: the backend accepted only part of a batch
//
// For rejected input records, use the intake processor errors instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrPartialWrite = errors.New("partial write")
)
