package mocks

import (
	"context"
	"encoding/json"
	"sync"

	sharedCache "github.com/davicafu/postlab/internal/shared/infra/platform/cache"
)

// DummyCache guarda los valores como JSON, igual que Redis, para que los
// tests vean la misma (de)serialización que producción. Ignora el TTL.
type DummyCache struct {
	mu     sync.RWMutex
	store  map[string][]byte
	hits   int
	misses int
}

var _ sharedCache.Cache = (*DummyCache)(nil)

func NewDummyCache() *DummyCache {
	return &DummyCache{store: make(map[string][]byte)}
}

func (c *DummyCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.store[key]
	if !ok {
		c.misses++
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *DummyCache) Set(_ context.Context, key string, val interface{}, _ int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = data
	c.mu.Unlock()
	return nil
}

func (c *DummyCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
	return nil
}

// Has indica si la key está presente.
func (c *DummyCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.store[key]
	return ok
}

// Stats devuelve aciertos y fallos de Get.
func (c *DummyCache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
