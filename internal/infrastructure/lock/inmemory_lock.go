package lock

import (
	"context"
	"sync"
	"time"

	"github.com/omnisync/backend/internal/domain/shared"
)

// lease represents a held key with its owner token and expiration
type lease struct {
	token     string
	expiresAt time.Time
}

// InMemoryLockCoordinator keeps leases in a map. It is suitable for
// single-instance deployments and tests; leases are not shared across processes.
type InMemoryLockCoordinator struct {
	mu        sync.Mutex
	leases    map[string]lease
	opts      options
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLockCoordinator creates the coordinator and starts a background
// goroutine that drops expired leases.
func NewInMemoryLockCoordinator(opts ...Option) *InMemoryLockCoordinator {
	c := &InMemoryLockCoordinator{
		leases:   make(map[string]lease),
		opts:     buildOptions(opts),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Acquire implements shared.LockCoordinator
func (c *InMemoryLockCoordinator) Acquire(_ context.Context, key string, ttl time.Duration) (shared.Lease, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if l, exists := c.leases[key]; exists && now.Before(l.expiresAt) {
		c.opts.record(OutcomeBusy)
		return shared.Lease{}, false
	}

	token := c.opts.newToken()
	c.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	c.opts.record(OutcomeAcquired)
	return shared.Lease{Key: key, Token: token}, true
}

// Release implements shared.LockCoordinator. A lease that expired and was
// taken over by another holder is left in place.
func (c *InMemoryLockCoordinator) Release(_ context.Context, l shared.Lease) error {
	if l.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.leases[l.Key]; ok && current.token == l.Token {
		delete(c.leases, l.Key)
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryLockCoordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Held returns the number of unexpired leases (for tests and monitoring)
func (c *InMemoryLockCoordinator) Held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, l := range c.leases {
		if now.Before(l.expiresAt) {
			n++
		}
	}
	return n
}

func (c *InMemoryLockCoordinator) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
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

func (c *InMemoryLockCoordinator) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, l := range c.leases {
		if !now.Before(l.expiresAt) {
			delete(c.leases, key)
		}
	}
}

// Ensure InMemoryLockCoordinator implements LockCoordinator
var _ shared.LockCoordinator = (*InMemoryLockCoordinator)(nil)
