package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process sliding-window Limiter for a single instance.
type Memory struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemory returns a Limiter admitting limit requests per window per key.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{hits: make(map[string][]time.Time), limit: limit, window: window, now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)
	hits := m.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	d := Decision{Limit: m.limit}
	if len(hits) < m.limit {
		hits = append(hits, now)
		d.Allowed = true
		d.Remaining = m.limit - len(hits)
	}
	if len(hits) == 0 {
		delete(m.hits, key)
		d.Reset = now.Add(m.window)
		return d, nil
	}
	m.hits[key] = hits
	d.Reset = hits[0].Add(m.window)
	return d, nil
}
