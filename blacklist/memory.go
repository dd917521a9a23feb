package blacklist

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local blacklist for single-instance deployments and tests. Entries are
// dropped lazily on lookup and in bulk by Purge.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory returns an empty Memory blacklist. A nil now uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]time.Time), now: now}
}

func (m *Memory) Add(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(token)] = m.now().Add(ttl)
	return nil
}

func (m *Memory) Contains(_ context.Context, token string) (bool, error) {
	key := Key(token)
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

// Purge removes every expired entry and returns how many were removed.
func (m *Memory) Purge(context.Context) (int64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included until purged.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
