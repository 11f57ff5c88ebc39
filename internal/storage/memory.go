package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内保存快照，重启即丢失
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	queries  map[string]cachedQuery
	now      func() time.Time
}

type cachedQuery struct {
	snap      Snapshot
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queries: make(map[string]cachedQuery), now: time.Now}
}

func (m *MemoryStore) Save(ctx context.Context, s Snapshot) error {
	c := cloneSnapshot(s)
	m.mu.Lock()
	m.snapshot = &c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Current(ctx context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return cloneSnapshot(*m.snapshot), nil
}

func (m *MemoryStore) GetQuery(ctx context.Context, key string) (Snapshot, bool) {
	m.mu.RLock()
	q, ok := m.queries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(q.expiresAt) {
		return Snapshot{}, false
	}
	return cloneSnapshot(q.snap), true
}

func (m *MemoryStore) PutQuery(ctx context.Context, key string, s Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	// 顺带清理过期项
	for k, q := range m.queries {
		if !now.Before(q.expiresAt) {
			delete(m.queries, k)
		}
	}
	m.queries[key] = cachedQuery{snap: cloneSnapshot(s), expiresAt: now.Add(ttl)}
}

func (m *MemoryStore) Close() error { return nil }
