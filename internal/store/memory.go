package store

import (
	"context"
	"sync"
	"time"
)

type contextEntry struct {
	bag       SessionContext
	updatedAt time.Time
}

// MemoryContextStore keeps session contexts in process memory. Entries idle for
// longer than the TTL are treated as absent and dropped; a zero TTL keeps them
// for the life of the process.
type MemoryContextStore struct {
	mu       sync.Mutex
	contexts map[string]contextEntry
	ttl      time.Duration
	now      func() time.Time
}

type MemoryOption func(*MemoryContextStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryContextStore) { m.now = now }
}

func NewMemoryContextStore(ttl time.Duration, opts ...MemoryOption) *MemoryContextStore {
	m := &MemoryContextStore{
		contexts: make(map[string]contextEntry),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryContextStore) Get(_ context.Context, sessionID string) (SessionContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.contexts[sessionID]
	if !ok {
		return SessionContext{}, nil
	}
	if m.expiredLocked(e) {
		delete(m.contexts, sessionID)
		return SessionContext{}, nil
	}
	return e.bag.Clone(), nil
}

func (m *MemoryContextStore) Set(_ context.Context, sessionID string, sc SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[sessionID] = contextEntry{bag: sc.Clone(), updatedAt: m.now()}
	return nil
}

// Sweep drops every expired entry and reports how many were removed.
func (m *MemoryContextStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.contexts {
		if m.expiredLocked(e) {
			delete(m.contexts, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored sessions, expired or not.
func (m *MemoryContextStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// RunJanitor sweeps every interval until ctx is done.
func (m *MemoryContextStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *MemoryContextStore) expiredLocked(e contextEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.updatedAt) > m.ttl
}
