package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/port"
)

// RedisCache is an adapter that satisfies the port.Cache interface using Redis.
// It wraps a go-redis v9 Client and owns the single reconnect-and-retry policy
// for transient connection errors, so call sites stay free of retry logic.
type RedisCache struct {
	client *redis.Client
}

// NewRedisAdapter constructs a RedisCache using the REDIS_URL environment variable.
func NewRedisAdapter() (*RedisCache, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		return nil, errors.New("redis: REDIS_URL environment variable is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisCache{client: c}, nil
}

// Ensure interface compliance at compile time
var _ port.Cache = (*RedisCache)(nil)

// retryable reports whether err is a transient transport failure worth one
// immediate retry. go-redis re-dials on the next command, so a single retry
// is enough to recover from a dropped connection.
func retryable(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := r.client.Get(ctx, key).Result()
	if retryable(err) {
		res, err = r.client.Get(ctx, key).Result()
	}
	if err == redis.Nil {
		return "", port.ErrMiss
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := r.client.Set(ctx, key, value, ttl).Err()
	if retryable(err) {
		err = r.client.Set(ctx, key, value, ttl).Err()
	}
	return err
}

func (r *RedisCache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if retryable(err) {
		ok, err = r.client.SetNX(ctx, key, value, ttl).Result()
	}
	return ok, err
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if retryable(err) {
		n, err = r.client.Del(ctx, keys...).Result()
	}
	return n, err
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if retryable(err) {
		n, err = r.client.Exists(ctx, key).Result()
	}
	return n > 0, err
}

func (r *RedisCache) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, key, delta).Result()
	if retryable(err) {
		n, err = r.client.IncrBy(ctx, key, delta).Result()
	}
	return n, err
}

func (r *RedisCache) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	err := r.client.RPush(ctx, key, args...).Err()
	if retryable(err) {
		err = r.client.RPush(ctx, key, args...).Err()
	}
	return err
}

func (r *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	res, err := r.client.LRange(ctx, key, start, stop).Result()
	if retryable(err) {
		res, err = r.client.LRange(ctx, key, start, stop).Result()
	}
	return res, err
}

func (r *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := r.client.Expire(ctx, key, ttl).Err()
	if retryable(err) {
		err = r.client.Expire(ctx, key, ttl).Err()
	}
	return err
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
