package vault

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHandleCacheHit(t *testing.T) {
	cache := NewHandleCache(30 * time.Second)
	tenantID := uuid.New()
	handle := NewSecretHandle(uuid.New(), tenantID, "openai-prod", "openai", "sk-value")

	cache.Put(tenantID, "openai-prod", handle)

	got, ok := cache.Get(tenantID, "openai-prod")
	assert.True(t, ok)
	assert.Same(t, handle, got)
}

func TestHandleCacheMiss(t *testing.T) {
	cache := NewHandleCache(30 * time.Second)

	_, ok := cache.Get(uuid.New(), "openai-prod")
	assert.False(t, ok)
}

func TestHandleCacheExpiry(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	cache := NewHandleCache(30 * time.Second)
	cache.now = func() time.Time { return base }

	tenantID := uuid.New()
	cache.Put(tenantID, "openai-prod", NewSecretHandle(uuid.New(), tenantID, "openai-prod", "openai", "sk-value"))

	cache.now = func() time.Time { return base.Add(29 * time.Second) }
	_, ok := cache.Get(tenantID, "openai-prod")
	assert.True(t, ok)

	cache.now = func() time.Time { return base.Add(31 * time.Second) }
	_, ok = cache.Get(tenantID, "openai-prod")
	assert.False(t, ok)
}

func TestHandleCacheInvalidate(t *testing.T) {
	cache := NewHandleCache(30 * time.Second)
	tenantID := uuid.New()
	cache.Put(tenantID, "openai-prod", NewSecretHandle(uuid.New(), tenantID, "openai-prod", "openai", "sk-value"))

	cache.Invalidate(tenantID, "openai-prod")

	_, ok := cache.Get(tenantID, "openai-prod")
	assert.False(t, ok)
}

func TestHandleCacheKeyedByTenantAndName(t *testing.T) {
	cache := NewHandleCache(30 * time.Second)
	tenantA := uuid.New()
	tenantB := uuid.New()
	cache.Put(tenantA, "openai-prod", NewSecretHandle(uuid.New(), tenantA, "openai-prod", "openai", "sk-a"))

	_, ok := cache.Get(tenantB, "openai-prod")
	assert.False(t, ok)
	_, ok = cache.Get(tenantA, "anthropic-prod")
	assert.False(t, ok)
}
