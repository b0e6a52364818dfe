package verifier

import (
	"context"
	"sync"
	"time"
)

// KeyCache stores PEM-encoded signing keys by kid. Implementations must be
// safe for concurrent use. A cache error is treated as a miss by the Verifier.
type KeyCache interface {
	Get(ctx context.Context, kid string) (pem string, ok bool, err error)
	Set(ctx context.Context, kid, pem string, ttl time.Duration) error
}

type memoryEntry struct {
	pem       string
	expiresAt time.Time
}

// MemoryKeyCache is an in-process KeyCache with per-entry expiry
type MemoryKeyCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKeyCache creates an empty MemoryKeyCache
func NewMemoryKeyCache() *MemoryKeyCache {
	return &MemoryKeyCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached PEM for kid if present and not expired
func (c *MemoryKeyCache) Get(_ context.Context, kid string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[kid]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if e, ok := c.entries[kid]; ok && !c.now().Before(e.expiresAt) {
			delete(c.entries, kid)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.pem, true, nil
}

// Set stores pem for kid. A non-positive ttl is a no-op.
func (c *MemoryKeyCache) Set(_ context.Context, kid, pem string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[kid] = memoryEntry{pem: pem, expiresAt: c.now().Add(ttl)}
	return nil
}
