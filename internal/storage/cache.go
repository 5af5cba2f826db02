package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RenderCache keeps decoded PDF bytes in Redis keyed by a digest of the
// render input, so identical requests skip the browser entirely.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache connects to Redis and verifies the connection
func NewRenderCache(addr string, password string, db int, ttl time.Duration) (*RenderCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,

		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RenderCache{client: client, ttl: ttl}, nil
}

// CacheKey digests the complete render input. Any difference in URL,
// document, or print parameters yields a different key.
func CacheKey(url string, html string, printParams map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(html))
	h.Write([]byte{0})

	// Maps marshal with sorted keys, so the digest is stable
	if params, err := json.Marshal(printParams); err == nil {
		h.Write(params)
	}

	return "pdf:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached PDF for a key, or nil on a miss
func (c *RenderCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	return data, nil
}

// Put stores a rendered PDF with the configured TTL
func (c *RenderCache) Put(ctx context.Context, key string, pdf []byte) error {
	if err := c.client.Set(ctx, key, pdf, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RenderCache) Close() error {
	return c.client.Close()
}
