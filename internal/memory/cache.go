package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the number of live managers across all tenants.
const DefaultCacheCapacity = 100

// Factory builds a manager for a (tenant, agent) pair on cache miss.
type Factory func(tenantID, agentID uuid.UUID) (*Manager, error)

// Cache is a bounded LRU of manager instances keyed by tenant:agent. There is
// no ambient global; callers construct one cache and inject it wherever a
// manager is needed. GetOrCreate is atomic per key, so no caller ever sees a
// manager mid-eviction.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *Manager]
	factory Factory
}

func NewCache(capacity int, factory Factory) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := lru.NewWithEvict(capacity, func(_ string, m *Manager) {
		// Eviction runs inside the LRU's own bookkeeping; Close is a cheap
		// no-op release so eviction never stalls other lookups.
		m.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create manager cache: %w", err)
	}
	return &Cache{entries: entries, factory: factory}, nil
}

func cacheKey(tenantID, agentID uuid.UUID) string {
	return tenantID.String() + ":" + agentID.String()
}

// GetOrCreate returns the cached manager for the pair, constructing and
// inserting one if absent. An evicted pair is rebuilt transparently on its
// next access.
func (c *Cache) GetOrCreate(tenantID, agentID uuid.UUID) (*Manager, error) {
	key := cacheKey(tenantID, agentID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.entries.Get(key); ok {
		return m, nil
	}

	m, err := c.factory(tenantID, agentID)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, m)
	return m, nil
}

// Contains reports whether the pair is currently cached, without refreshing
// its recency.
func (c *Cache) Contains(tenantID, agentID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(cacheKey(tenantID, agentID))
}

// Len returns the number of live managers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
