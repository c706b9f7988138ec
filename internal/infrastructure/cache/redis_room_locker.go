package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisRoomLocker implements shared.Locker with SET NX PX so several
// service instances share one lock per room
type RedisRoomLocker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// defaultRedisLockTTL matches config.Config.MinLockTTL at the default 10s POS timeout
const defaultRedisLockTTL = 130 * time.Second

// NewRedisRoomLocker creates a locker over an existing client.
// ttl bounds how long a crashed holder can keep a room locked and must outlive
// the slowest order; see config.Config.MinLockTTL.
func NewRedisRoomLocker(client *redis.Client, ttl, pollInterval time.Duration, logger *zap.Logger) *RedisRoomLocker {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRoomLocker{
		client:       client,
		ttl:          ttl,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Lock polls SET key token NX PX ttl until it succeeds or ctx is done
func (l *RedisRoomLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire room lock: %w", err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, shared.WrapDomainError(shared.ErrLockUnavailable, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisRoomLocker) unlocker(key, token string) func() {
	return func() {
		// The caller's context may already be cancelled; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			l.logger.Warn("Failed to release room lock", zap.String("key", key), zap.Error(err))
			return
		}
		if released == 0 {
			l.logger.Warn("Room lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
		}
	}
}

// Close closes the Redis client
func (l *RedisRoomLocker) Close() error {
	return l.client.Close()
}

var _ shared.Locker = (*RedisRoomLocker)(nil)
