package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"volrv/internal/backtest"
	"volrv/internal/config"
)

const summaryKeyPrefix = "volrv:summary:"

// RedisCache stores run summaries in redis as JSON.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, runID string) (*backtest.Summary, bool, error) {
	data, err := c.client.Get(ctx, summaryKeyPrefix+runID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get summary from redis: %w", err)
	}
	var summary backtest.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return &summary, true, nil
}

func (c *RedisCache) Set(ctx context.Context, summary *backtest.Summary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+summary.RunID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, runID string) error {
	if err := c.client.Del(ctx, summaryKeyPrefix+runID).Err(); err != nil {
		return fmt.Errorf("failed to delete summary from redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.client.Close() }
