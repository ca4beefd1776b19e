// Package diskcache provides content-addressed caching over disk or a
// SQL backend, keyed by an arbitrary string key (exact text, URL, or a
// composite query key) and storing an arbitrary byte payload.
//
// Callers are responsible for serializing values before Put and
// deserializing them after Get; the cache itself is payload-agnostic so it
// can back the embedding cache (C2), the page-fetch cache (C3), and the
// web-search cache (C4) with one implementation.
package diskcache

import (
	"context"
	"errors"
)

// ErrCache indicates a disk-cache operation failed.
var ErrCache = errors.New("diskcache: cache error")

// Cache is a content-addressed key/value store. Concurrent Put calls for
// the same key may race; one write wins, matching the "append-only from
// the user's perspective" semantics in spec §5.
type Cache interface {
	// Get returns the cached value for key. ok is false if no entry exists.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key, replacing any existing entry.
	Put(ctx context.Context, key string, value []byte) error
}
