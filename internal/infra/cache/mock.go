package cache

import (
	"context"
	"sync"
)

// Mock is an in-memory Cache for tests and for running without Redis.
type Mock struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMock creates an empty in-memory cache.
func NewMock() *Mock {
	return &Mock{data: make(map[string]string)}
}

func (m *Mock) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *Mock) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Mock) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len reports the number of cached entries.
func (m *Mock) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
