package session

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in a go-cache instance without expiry.
type MemoryStore struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) SetMany(_ context.Context, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kv {
		m.c.Set(k, v, cache.NoExpiration)
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.c.Flush()
	return nil
}
