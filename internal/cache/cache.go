package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PoolStatsCache stores derived pool statistics per bet. Implementations
// must treat a miss as (false, nil).
type PoolStatsCache interface {
	Get(ctx context.Context, betID uint, dst any) (bool, error)
	Set(ctx context.Context, betID uint, v any) error
	Invalidate(ctx context.Context, betID uint) error
}

// ConnectRedis opens a client and checks it responds.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// RedisPoolStatsCache keeps JSON snapshots under pool_stats:<bet id>.
type RedisPoolStatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPoolStatsCache(rdb *redis.Client, ttl time.Duration) *RedisPoolStatsCache {
	return &RedisPoolStatsCache{rdb: rdb, ttl: ttl}
}

func poolStatsKey(betID uint) string {
	return "pool_stats:" + strconv.FormatUint(uint64(betID), 10)
}

func (c *RedisPoolStatsCache) Get(ctx context.Context, betID uint, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, poolStatsKey(betID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *RedisPoolStatsCache) Set(ctx context.Context, betID uint, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, poolStatsKey(betID), b, c.ttl).Err()
}

func (c *RedisPoolStatsCache) Invalidate(ctx context.Context, betID uint) error {
	return c.rdb.Del(ctx, poolStatsKey(betID)).Err()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, uint, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, uint, any) error         { return nil }
func (Noop) Invalidate(context.Context, uint) error       { return nil }
