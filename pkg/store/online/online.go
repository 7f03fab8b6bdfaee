// Package online provides the low-latency key-value store adapters serving
// the current feature snapshot for inference. Two implementations exist:
// a redis-backed store for production and an in-memory store for tests and
// single-process deployments.
//
// Contract: Write persists a complete field map under a key in one
// operation (last write wins), ReadAll returns the full map, and a key that
// was never written reads as an empty map with a nil error. Store
// unavailability and deadline overruns surface as storage/timeout errors
// so callers can tell "nothing there" from "something broke".
package online

import "context"

// Store is the key-value interface the feature store coordinator writes
// through. Keys are "{group}:{entityId}" composites; fields are the
// string-encoded feature values.
type Store interface {
	// Write replaces the field map stored under key. The map is written
	// atomically: a reader never observes a subset of the fields.
	Write(ctx context.Context, key string, fields map[string]string) error

	// ReadAll returns the field map stored under key, or an empty map when
	// the key is absent.
	ReadAll(ctx context.Context, key string) (map[string]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
