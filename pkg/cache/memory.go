package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process CacheAdapter: a mutex-protected map with a
// background sweep goroutine that evicts expired entries every 5 minutes.
// Grounded on the mutex-protected-map shape of mchenetz-SPLAI's in-memory
// state store, generalized from typed job/task records to a raw byte cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stop    chan struct{}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

const sweepInterval = 5 * time.Minute

// NewMemory creates an in-process cache and starts its sweep goroutine.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// Close stops the sweep goroutine. Safe to skip; the process exiting
// reclaims the goroutine regardless.
func (m *Memory) Close() {
	close(m.stop)
}

// Get returns the cached value for key, or ErrNotFound if absent or expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Set overwrites key with value, expiring after ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Del removes key, if present.
func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
