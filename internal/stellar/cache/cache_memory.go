package cache

import (
	"context"
	"sync"
	"time"

	"docproof/internal/stellar/models"
)

type memoryEntry struct {
	storedAt time.Time
}

// MemoryCache is the in-process cache twin, used in unit tests and when
// Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemory constructs an in-memory verification cache with the given TTL.
func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (c *MemoryCache) GetVerified(_ context.Context, network models.Network, documentHash string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key(network, documentHash)]
	if !ok {
		return false, nil
	}
	if time.Since(entry.storedAt) >= c.ttl {
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) SetVerified(_ context.Context, network models.Network, documentHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(network, documentHash)] = memoryEntry{storedAt: time.Now()}
	return nil
}
