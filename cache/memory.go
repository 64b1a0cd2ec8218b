package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

func (m *MemoryStore) Get(_ context.Context, k Key) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[k]
	return rec, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, k Key, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[k] = rec
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error { return nil }
