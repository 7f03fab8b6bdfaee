package online

import (
	"context"
	"sync"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// MemoryStore is an in-process online store used by tests and by
// deployments running without redis. It honors the same contract as
// RedisStore, including whole-map replacement on write.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string

	// failWrites makes every Write fail with a storage error. Tests use it
	// to exercise the best-effort online write policy.
	failWrites bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// FailWrites toggles write fault injection.
func (s *MemoryStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// Write replaces the field map under key.
func (s *MemoryStore) Write(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeTimeout, "online write cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return skyerrors.New(skyerrors.ErrorTypeStorage, "online store unavailable")
	}

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.data[key] = copied
	return nil
}

// ReadAll returns a copy of the field map under key, or an empty map.
func (s *MemoryStore) ReadAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeTimeout, "online read cancelled")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[key]
	if !ok {
		return map[string]string{}, nil
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
