package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookhub/internal/http-api/models"

	"github.com/redis/go-redis/v9"
)

// BookCache is a cache-aside layer for book-by-id reads. Catalog reads may
// serve a slightly stale snapshot, so caching is safe; every book mutation
// invalidates its key.
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// redisOptions accepts either a bare host:port or a redis:// URL. An explicit
// password overrides whatever the URL carries.
func redisOptions(addr, password string) (*redis.Options, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

// NewBookCache connects to redis and verifies the connection. A nil
// *BookCache is a valid no-op cache, so callers can run without redis.
func NewBookCache(addr, password string, ttl time.Duration) (*BookCache, error) {
	opts, err := redisOptions(addr, password)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &BookCache{client: rdb, ttl: ttl}, nil
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

// Get returns the cached book or (nil, nil) on a miss.
func (c *BookCache) Get(ctx context.Context, id int64) (*models.Book, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b models.Book
	if err := json.Unmarshal(raw, &b); err != nil {
		// stale or corrupted entry, treat as a miss
		return nil, nil
	}
	return &b, nil
}

func (c *BookCache) Set(ctx context.Context, b *models.Book) error {
	if c == nil || c.client == nil || b == nil {
		return nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookKey(b.ID), raw, c.ttl).Err()
}

func (c *BookCache) Invalidate(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, bookKey(id)).Err()
}
