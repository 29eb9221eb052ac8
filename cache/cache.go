package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Keys shared by the dashboards; every borrow event drops them.
const (
	KeyDashboardStats = "dashboard"
	KeyAnalytics      = "analytics"
	KeyUtilization    = "utilization"
	StatsTTL          = 5 * time.Minute
)

// Helper is a prefixed JSON cache over Redis. A nil client turns every call into a miss.
type Helper struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

func NewHelper(client *redis.Client, prefix string, log *slog.Logger) *Helper {
	if log == nil {
		log = slog.Default()
	}
	return &Helper{client: client, prefix: prefix, log: log}
}

func (c *Helper) key(k string) string { return fmt.Sprintf("%s%s", c.prefix, k) }

func (c *Helper) Get(ctx context.Context, key string, dest any) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (c *Helper) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *Helper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidatePattern removes matching keys with SCAN.
func (c *Helper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, c.key(pattern), 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// GetOrLoad is cache-aside: on a miss it calls load and stores the result.
// Cache failures are logged and never fail the call.
func GetOrLoad[T any](ctx context.Context, c *Helper, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		c.log.Warn("cache get failed, loading", "key", key, "err", err)
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
	return v, nil
}

// InvalidateStats drops every cached aggregate.
func (c *Helper) InvalidateStats(ctx context.Context) error {
	return c.InvalidatePattern(ctx, "*")
}
