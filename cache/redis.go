package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces cache keys in Redis.
const RedisKeyPrefix = "accesspdf:alttext:"

// RedisStore keeps records in Redis without expiry.
type RedisStore struct {
	rdb *redis.Client
}

// ConnectRedis creates a Redis-backed store and verifies connectivity.
func ConnectRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (r *RedisStore) Get(ctx context.Context, k Key) (Record, bool, error) {
	val, err := r.rdb.Get(ctx, RedisKeyPrefix+k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record %s: %w", k, err)
	}
	return rec, true, nil
}

func (r *RedisStore) Put(ctx context.Context, k Key, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, RedisKeyPrefix+k.String(), data, 0).Err()
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
