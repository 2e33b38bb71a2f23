package store

import (
	"context"
	"sync"
	"time"
)

const layerMemory = "memory"

type memoryEntry struct {
	expires time.Time
	bytes   []byte
}

// Memory is an in-process store. Expired entries are dropped on read.
type Memory struct {
	mu sync.RWMutex
	db map[string]memoryEntry
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		db: make(map[string]memoryEntry),
	}
}

// Get retrieves the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.db[key]
	m.mu.RUnlock()

	if !ok {
		StoreMisses.WithLabelValues(layerMemory).Inc()
		return nil, false, nil
	}

	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		m.mu.Lock()
		delete(m.db, key)
		m.mu.Unlock()
		StoreMisses.WithLabelValues(layerMemory).Inc()
		return nil, false, nil
	}

	StoreHits.WithLabelValues(layerMemory).Inc()
	return entry.bytes, true, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{bytes: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.db[key] = entry
	return nil
}

// Delete removes a cache entry.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.db, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.db)
}
