package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/refresh_level.lua
var refreshLevelScript string

const lowStockSetKey = "stock:low"

type Client struct {
	rdb           *redis.Client
	refreshScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		refreshScript: redis.NewScript(refreshLevelScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func levelKey(category string) string {
	return fmt.Sprintf("stock:level:%s", category)
}

// RefreshLevel atomically caches a category's committed level and updates its
// membership in the low-stock set. Cache only: the database is the source of
// truth and this is called after commit, never before.
func (c *Client) RefreshLevel(ctx context.Context, category string, level, threshold int) error {
	keys := []string{levelKey(category), lowStockSetKey}
	_, err := c.refreshScript.Run(ctx, c.rdb, keys, level, threshold, category).Result()
	if err != nil {
		return fmt.Errorf("refresh level script failed: %w", err)
	}
	return nil
}

// GetLevel reads a cached category level. The second return is false on a
// cache miss.
func (c *Client) GetLevel(ctx context.Context, category string) (int, bool, error) {
	val, err := c.rdb.Get(ctx, levelKey(category)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	level, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached level for %s: %w", category, err)
	}
	return level, true, nil
}

// GetLowStockCategories reads the cached low-stock set
func (c *Client) GetLowStockCategories(ctx context.Context) ([]string, error) {
	return c.rdb.SMembers(ctx, lowStockSetKey).Result()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
