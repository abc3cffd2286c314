package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes and returns a Redis client instance.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fmt.Println("Successfully connected to Redis!")
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	fmt.Println("Redis connection closed.")
	return nil
}

// JSONCache stores JSON documents under a key prefix with a fixed TTL.
// A nil *JSONCache is valid and never hits.
type JSONCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewJSONCache returns nil when rdb is nil so callers can run without Redis.
func NewJSONCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *JSONCache {
	if rdb == nil {
		return nil
	}
	return &JSONCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *JSONCache) key(k string) string { return c.prefix + ":" + k }

// Get decodes the cached value for k into dst. It reports false on a miss.
// Redis failures are logged and treated as a miss.
func (c *JSONCache) Get(ctx context.Context, k string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("WARN: cache get %s failed: %v", c.key(k), err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("WARN: cache entry %s is corrupt: %v", c.key(k), err)
		return false
	}
	return true
}

// Set stores v under k. Errors are logged, not returned.
func (c *JSONCache) Set(ctx context.Context, k string, v interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: cache marshal %s failed: %v", c.key(k), err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err(); err != nil {
		log.Printf("WARN: cache set %s failed: %v", c.key(k), err)
	}
}

// Delete evicts k.
func (c *JSONCache) Delete(ctx context.Context, k string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(k)).Err(); err != nil {
		log.Printf("WARN: cache delete %s failed: %v", c.key(k), err)
	}
}
