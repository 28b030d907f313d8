package cachex

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache. It is safe for concurrent use and evicts
// expired entries lazily on Get, so a long-idle cache holds at most the
// entries written since the last read of each key.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if time.Now().After(entry.expiresAt) {
		// Expired: evict under the write lock, re-checking in case a
		// concurrent Put replaced the entry in between.
		m.mu.Lock()
		if current, still := m.entries[key]; still && time.Now().After(current.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", false, nil
	}

	return entry.value, true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Forget implements Cache.
func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
