package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ CounterStore = (*MemoryCounterStore)(nil)

type windowEntry struct {
	count     int64
	resetAt   time.Time
	expiresAt time.Time
}

// MemoryCounterStore keeps fixed-window counters in process memory. Entries
// expire a little after their window so the map stays bounded.
type MemoryCounterStore struct {
	mu        sync.Mutex
	windows   map[string]windowEntry
	lastPurge time.Time

	now func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		windows: make(map[string]windowEntry),
		now:     time.Now,
	}
}

func (m *MemoryCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.purgeExpired(now)

	e, ok := m.windows[key]
	if !ok || !now.Before(e.resetAt) {
		e = windowEntry{
			count:     1,
			resetAt:   now.Add(window),
			expiresAt: now.Add(window + counterTTLBuffer),
		}
	} else {
		e.count++
	}
	m.windows[key] = e
	return e.count, e.resetAt, nil
}

// purgeExpired drops dead entries at most once a minute; callers hold the lock.
func (m *MemoryCounterStore) purgeExpired(now time.Time) {
	if now.Sub(m.lastPurge) < time.Minute {
		return
	}
	m.lastPurge = now
	for key, e := range m.windows {
		if !now.Before(e.expiresAt) {
			delete(m.windows, key)
		}
	}
}
