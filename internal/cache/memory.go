package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

const (
	// DefaultMaxEntries bounds a Memory store built with NewMemory.
	DefaultMaxEntries = 10000
	sweepInterval     = time.Minute
)

// Memory is a process-local Store. Get drops the expired entry it finds; Set sweeps every
// expired entry at most once per sweepInterval, or whenever the store is full. When a sweep
// leaves the store full, Set evicts arbitrary entries to make room.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	byTag      map[string]map[string]struct{}
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

func NewMemory() *Memory {
	return NewMemorySize(DefaultMaxEntries)
}

// NewMemorySize returns a Memory holding at most max entries; max <= 0 means unbounded.
func NewMemorySize(max int) *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		byTag:      make(map[string]map[string]struct{}),
		maxEntries: max,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.deleteLocked(key)
		return nil, ErrMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)

	now := m.now()
	full := m.maxEntries > 0 && len(m.entries) >= m.maxEntries
	if full || now.Sub(m.lastSweep) >= sweepInterval {
		m.sweepLocked(now)
	}
	if m.maxEntries > 0 {
		for k := range m.entries {
			if len(m.entries) < m.maxEntries {
				break
			}
			m.deleteLocked(k)
		}
	}

	e := memoryEntry{value: append([]byte(nil), value...), tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e
	for _, t := range tags {
		set, ok := m.byTag[t]
		if !ok {
			set = make(map[string]struct{})
			m.byTag[t] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

func (m *Memory) Revalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tags {
		for key := range m.byTag[t] {
			m.deleteLocked(key)
		}
		delete(m.byTag, t)
	}
	return nil
}

// Len returns the number of live and not yet collected entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked(now time.Time) {
	m.lastSweep = now
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			m.deleteLocked(k)
		}
	}
}

func (m *Memory) deleteLocked(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, t := range e.tags {
		if set, ok := m.byTag[t]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.byTag, t)
			}
		}
	}
}
