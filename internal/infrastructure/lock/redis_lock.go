// Package lock provides LockCoordinator implementations backed by Redis and
// by process memory.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces lease keys in Redis.
const DefaultKeyPrefix = "lock:"

// Acquire outcomes reported to the metrics recorder.
const (
	OutcomeAcquired = "acquired"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

// releaseScript deletes the key only when it still holds our token, so a
// lease that expired and was taken by another holder is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// MetricsRecorder receives the outcome of every acquire attempt.
type MetricsRecorder interface {
	RecordLockAcquire(outcome string)
}

// Option configures a coordinator.
type Option func(*options)

type options struct {
	keyPrefix string
	newToken  func() string
	logger    *zap.Logger
	metrics   MetricsRecorder
}

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithTokenGenerator overrides the random lease token, used by tests.
func WithTokenGenerator(fn func() string) Option {
	return func(o *options) { o.newToken = fn }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the recorder for acquire outcomes
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{
		keyPrefix: DefaultKeyPrefix,
		newToken:  func() string { return uuid.NewString() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) record(outcome string) {
	if o.metrics != nil {
		o.metrics.RecordLockAcquire(outcome)
	}
}

// RedisLockCoordinator grants leases with SET NX PX. Each lease carries a
// random token handed back to the caller, so Release only deletes the
// caller's own lease.
type RedisLockCoordinator struct {
	client redis.Cmdable
	opts   options
}

// NewRedisLockCoordinator creates a coordinator on an existing Redis client.
func NewRedisLockCoordinator(client redis.Cmdable, opts ...Option) *RedisLockCoordinator {
	return &RedisLockCoordinator{
		client: client,
		opts:   buildOptions(opts),
	}
}

// Acquire implements shared.LockCoordinator. Any Redis error is reported as
// not acquired.
func (c *RedisLockCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (shared.Lease, bool) {
	k := c.opts.keyPrefix + key
	token := c.opts.newToken()

	ok, err := c.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		c.opts.logger.Warn("Lock store unreachable, refusing lease",
			zap.String("key", k),
			zap.Error(err),
		)
		c.opts.record(OutcomeError)
		return shared.Lease{}, false
	}
	if !ok {
		c.opts.record(OutcomeBusy)
		return shared.Lease{}, false
	}

	c.opts.record(OutcomeAcquired)
	return shared.Lease{Key: key, Token: token}, true
}

// Release implements shared.LockCoordinator. Releasing a zero lease is a no-op.
func (c *RedisLockCoordinator) Release(ctx context.Context, lease shared.Lease) error {
	if lease.IsZero() {
		return nil
	}
	k := c.opts.keyPrefix + lease.Key

	if err := c.client.Eval(ctx, releaseScript, []string{k}, lease.Token).Err(); err != nil {
		// The TTL still bounds the lease.
		c.opts.logger.Warn("Failed to release lease", zap.String("key", k), zap.Error(err))
		return err
	}
	return nil
}

// Ensure RedisLockCoordinator implements LockCoordinator
var _ shared.LockCoordinator = (*RedisLockCoordinator)(nil)
