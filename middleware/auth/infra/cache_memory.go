package infra

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenCache é uma implementação simples em memória com expiração
// preguiçosa (checada no Get). Útil para testes e desenvolvimento; não
// compartilha estado entre instâncias.
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !ent.expiresAt.IsZero() && !time.Now().Before(ent.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return ent.value, true, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ent := memoryEntry{value: value}
	if ttl > 0 {
		ent.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ent
	return nil
}

func (c *MemoryTokenCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
