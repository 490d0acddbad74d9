// Package redis provides the Redis-backed rate-limit counter store.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// Connection wraps the Redis client with lifecycle helpers.
type Connection struct {
	Client redis.UniversalClient
	log    logger.Logger
}

// NewConnection dials Redis and verifies connectivity.
func NewConnection(cfg *config.RedisConfig, log logger.Logger) (*Connection, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.ErrStoreUnavailable("redis ping failed").WithCause(err)
	}

	log.Info(context.Background(), "redis connection established",
		logger.Any("addresses", cfg.Addresses),
	)
	return &Connection{Client: client, log: log}, nil
}

// Ping reports store health.
func (c *Connection) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Connection) Close() error {
	return c.Client.Close()
}
