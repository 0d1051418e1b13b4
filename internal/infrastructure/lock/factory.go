package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordinator is a LockCoordinator that owns resources to release on shutdown.
type Coordinator interface {
	shared.LockCoordinator
	Close() error
}

// NewFromConfig builds the coordinator selected by lock.backend. The redis
// backend pings the server first; an unreachable server is a startup error
// rather than a silent downgrade, since in-memory leases do not span instances.
func NewFromConfig(ctx context.Context, cfg config.LockConfig, redisCfg config.RedisConfig, opts ...Option) (Coordinator, error) {
	opts = append([]Option{WithKeyPrefix(cfg.Prefix)}, opts...)
	logger := buildOptions(opts).logger

	switch cfg.Backend {
	case "memory":
		logger.Warn("Using in-memory lock coordinator; leases are local to this process")
		return NewInMemoryLockCoordinator(opts...), nil
	case "redis", "":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("Redis lock coordinator ready", zap.String("addr", redisCfg.Addr()))
		return &closingRedisCoordinator{
			RedisLockCoordinator: NewRedisLockCoordinator(client, opts...),
			client:               client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

type closingRedisCoordinator struct {
	*RedisLockCoordinator
	client *redis.Client
}

func (c *closingRedisCoordinator) Close() error {
	return c.client.Close()
}
