package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/infrastructure/config"
)

// RoomLockerFactory creates room lockers based on configuration
type RoomLockerFactory struct {
	redisConfig           config.RedisConfig
	lockConfig            config.LockConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RoomLockerFactoryOption is a functional option for configuring the factory
type RoomLockerFactoryOption func(*RoomLockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RoomLockerFactoryOption {
	return func(f *RoomLockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory locker when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) RoomLockerFactoryOption {
	return func(f *RoomLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewRoomLockerFactory creates a new factory
func NewRoomLockerFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...RoomLockerFactoryOption) *RoomLockerFactory {
	f := &RoomLockerFactory{
		redisConfig:           redisCfg,
		lockConfig:            lockCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLocker creates a Redis-backed locker
func (f *RoomLockerFactory) CreateRedisLocker() (*RedisRoomLocker, error) {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis room locker: %w", err)
	}
	return NewRedisRoomLocker(client, f.lockConfig.TTL, f.lockConfig.PollInterval, f.logger.Named("room_lock")), nil
}

// CreateLocker returns the locker selected by lock.backend.
// With the redis backend it falls back to the in-memory locker when Redis is
// unreachable and fallback is allowed.
// WARNING: the in-memory locker only serializes requests within one process.
func (f *RoomLockerFactory) CreateLocker() (shared.Locker, error) {
	if f.lockConfig.Backend != "redis" {
		f.logger.Info("using in-memory room locker")
		return NewMemoryRoomLocker(), nil
	}

	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis room locker")
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for room locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory room locker. "+
		"Concurrent orders for one room are only serialized within this instance.",
		zap.Error(err),
	)
	return NewMemoryRoomLocker(), nil
}

// CreateIdempotencyStore returns the store for Idempotency-Key headers,
// shared through Redis when lock.backend is redis and Redis is reachable
func (f *RoomLockerFactory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	if f.lockConfig.Backend != "redis" {
		return NewMemoryIdempotencyStore(), nil
	}
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		return NewRedisIdempotencyStore(client), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency keys but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, idempotency keys are only checked within this instance", zap.Error(err))
	return NewMemoryIdempotencyStore(), nil
}
