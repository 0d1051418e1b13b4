// Package cache provides read-through caches in front of slower lookups.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCredentialTTL   = 5 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry struct {
	value     *integration.Credentials
	expiresAt time.Time
}

// CredentialCache is a CredentialProvider that memoizes another provider.
// Concurrent misses for the same tenant and source collapse into one lookup.
// Lookup errors are not cached.
type CredentialCache struct {
	next  integration.CredentialProvider
	ttl   time.Duration
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// CredentialCacheOption is a functional option for configuring the cache
type CredentialCacheOption func(*CredentialCache)

// WithTTL sets how long credentials stay cached
func WithTTL(ttl time.Duration) CredentialCacheOption {
	return func(c *CredentialCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCredentialCache wraps next and starts the expiry cleanup loop.
func NewCredentialCache(next integration.CredentialProvider, opts ...CredentialCacheOption) *CredentialCache {
	c := &CredentialCache{
		next:     next,
		ttl:      defaultCredentialTTL,
		entries:  make(map[string]cacheEntry),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

func credentialKey(tenantID uuid.UUID, source integration.Source) string {
	return tenantID.String() + ":" + source.String()
}

// Credentials implements integration.CredentialProvider
func (c *CredentialCache) Credentials(ctx context.Context, tenantID uuid.UUID, source integration.Source) (*integration.Credentials, error) {
	key := credentialKey(tenantID, source)
	if creds, ok := c.get(key); ok {
		c.hits.Add(1)
		return creds, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if creds, ok := c.get(key); ok {
			return creds, nil
		}
		creds, err := c.next.Credentials(ctx, tenantID, source)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: creds, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*integration.Credentials), nil
}

// Invalidate drops the cached credentials for one tenant and source
func (c *CredentialCache) Invalidate(tenantID uuid.UUID, source integration.Source) {
	c.mu.Lock()
	delete(c.entries, credentialKey(tenantID, source))
	c.mu.Unlock()
}

// Stats returns hit and miss counters
func (c *CredentialCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *CredentialCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *CredentialCache) get(key string) (*integration.Credentials, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *CredentialCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *CredentialCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Ensure CredentialCache implements CredentialProvider
var _ integration.CredentialProvider = (*CredentialCache)(nil)
