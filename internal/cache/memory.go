package cache

import (
	"context"
	"sync"
	"time"

	"intentrouter/internal/domain"
)

type entry struct {
	decisions []domain.Decision
	createdAt time.Time
	hits      int
}

// Memory is an in-process TTL cache bounded to maxSize entries; the oldest
// entry is evicted when full.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Memory{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]domain.Decision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && m.now().Sub(e.createdAt) > m.ttl {
		delete(m.entries, key)
		return nil, false, nil
	}
	e.hits++
	return append([]domain.Decision(nil), e.decisions...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, decisions []domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[key] = &entry{
		decisions: append([]domain.Decision(nil), decisions...),
		createdAt: m.now(),
	}
	return nil
}

func (m *Memory) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// Stats reports the entry count and the total number of hits.
func (m *Memory) Stats() (size, hits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		hits += e.hits
	}
	return len(m.entries), hits
}
