package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the queue, and the blob
// layer return these (optionally wrapped) so callers can branch on the fact
// without knowing which backend produced it.
//
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: write raced another writer for the same identity
// - ErrEmpty: queue has no message ready
// - ErrRateLimited: upstream answered 429; caller should back off longer
// - ErrUnavailable: service or resource temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrEmpty       = errors.New("empty")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("unavailable")
)
