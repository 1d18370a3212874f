package vault

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type cacheEntry struct {
	handle    *SecretHandle
	expiresAt time.Time
}

// HandleCache holds resolved handles for a short TTL to avoid a vault
// round-trip per call. Rotation and deactivation must invalidate
// immediately; expiry alone is not the consistency mechanism.
type HandleCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewHandleCache(ttl time.Duration) *HandleCache {
	return &HandleCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(tenantID uuid.UUID, name string) string {
	return tenantID.String() + "/" + name
}

func (c *HandleCache) Get(tenantID uuid.UUID, name string) (*SecretHandle, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(tenantID, name)]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.handle, true
}

func (c *HandleCache) Put(tenantID uuid.UUID, name string, handle *SecretHandle) {
	c.mu.Lock()
	c.entries[cacheKey(tenantID, name)] = cacheEntry{
		handle:    handle,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *HandleCache) Invalidate(tenantID uuid.UUID, name string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(tenantID, name))
	c.mu.Unlock()
}
