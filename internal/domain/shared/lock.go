package shared

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lease is one successful acquisition of a key. Token is unique per
// acquisition, so releasing a lease that already expired and was taken over
// leaves the new holder alone.
type Lease struct {
	Key   string
	Token string
}

// IsZero reports whether the lease was never granted.
func (l Lease) IsZero() bool {
	return l.Token == ""
}

// LockCoordinator grants short-lived, named exclusive leases.
//
// Acquire never blocks: it returns false immediately when the key is held by
// someone else. A lease that is never released expires after its TTL. When the
// backing store cannot be reached, Acquire reports false (fail closed).
// Release only deletes the key while it still carries the lease's token.
type LockCoordinator interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool)
	Release(ctx context.Context, lease Lease) error
}

// WithLock runs fn while holding the lease on key. It returns ErrResourceBusy
// without running fn when the lease cannot be acquired. The lease is released
// on every exit path of fn, including a panic, which is re-raised afterwards.
func WithLock(ctx context.Context, coord LockCoordinator, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lease, ok := coord.Acquire(ctx, key, ttl)
	if !ok {
		return ErrResourceBusy.WithMessage("resource %s is busy", key)
	}
	defer func() {
		// Release with a fresh context so a cancelled request still frees the lease.
		_ = coord.Release(context.WithoutCancel(ctx), lease)
	}()
	return fn(ctx)
}

// WithLocks acquires every key in sorted order and runs fn while holding all
// of them. If any key is busy, the leases already taken are released and
// ErrResourceBusy is returned. Duplicate keys are collapsed.
func WithLocks(ctx context.Context, coord LockCoordinator, keys []string, ttl time.Duration, fn func(ctx context.Context) error) error {
	ordered := uniqueSorted(keys)
	held := make([]Lease, 0, len(ordered))
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			_ = coord.Release(releaseCtx, held[i])
		}
	}()

	for _, key := range ordered {
		lease, ok := coord.Acquire(ctx, key, ttl)
		if !ok {
			return ErrResourceBusy.WithMessage("resource %s is busy", key)
		}
		held = append(held, lease)
	}
	return fn(ctx)
}

// InventoryLockKey returns the resource key guarding one (tenant, sku) ledger row.
func InventoryLockKey(tenantID uuid.UUID, sku string) string {
	return fmt.Sprintf("inventory:%s:%s", tenantID, sku)
}

// SyncLockKey returns the resource key guarding one sync target.
func SyncLockKey(tenantID uuid.UUID, source, jobType string) string {
	return fmt.Sprintf("sync:%s:%s:%s", tenantID, strings.ToLower(source), jobType)
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
