package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store for tests and single-node
// deployments. Counter semantics mirror RedisStore, including TTL
// refresh on every increment.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewMemoryStore creates a MemoryStore with background expiry sweeping.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10), true, nil
	case string:
		return t, true, nil
	default:
		return "", false, nil
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64 = 1
	if v, found := m.cache.Get(key); found {
		switch t := v.(type) {
		case int64:
			n = t + 1
		case string:
			if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
				n = parsed + 1
			}
		}
	}
	m.cache.Set(key, n, ttl)
	return n, nil
}
