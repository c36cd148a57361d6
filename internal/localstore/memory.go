package localstore

import (
	"context"
	"sync"
)

// MemoryStore keeps values in a map. It backs tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a MemoryStore, optionally pre-populated
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) LoadAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Write(ctx context.Context, key, raw string) error {
	return m.WriteSet(ctx, map[string]string{key: raw})
}

func (m *MemoryStore) WriteSet(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for k, v := range values {
		m.values[k] = v
	}
	m.writes++
	return nil
}

// Get returns the raw value of one key
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Corrupt overwrites key with a value that cannot be decoded
func (m *MemoryStore) Corrupt(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = "{not json"
}

// Writes returns how many write calls have been made
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
