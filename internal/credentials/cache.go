package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// Cache remembers live-check outcomes. Implementations key entries by a
// digest of the credential, never the credential itself.
type Cache interface {
	Get(ctx context.Context, kind providers.Kind, key string) (valid, found bool, err error)
	Set(ctx context.Context, kind providers.Kind, key string, valid bool, ttl time.Duration) error
}

func fingerprint(kind providers.Kind, key string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + key))
	return hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	valid   bool
	expires time.Time
}

// MemoryCache is the in-process Cache used when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, kind providers.Kind, key string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := fingerprint(kind, key)
	e, ok := c.entries[id]
	if !ok {
		return false, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return false, false, nil
	}
	return e.valid, true, nil
}

func (c *MemoryCache) Set(_ context.Context, kind providers.Kind, key string, valid bool, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint(kind, key)] = memoryEntry{valid: valid, expires: c.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
