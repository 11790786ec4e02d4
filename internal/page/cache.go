package page

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces cached pages; the invalidation notifier deletes the same keys.
const KeyPrefix = "page:"

// Cache holds rendered pages in Redis, keyed by public path.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func Key(path string) string {
	return KeyPrefix + path
}

// Get returns the cached body for path, with ok=false on a miss.
func (c *Cache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached page: %w", err)
	}
	return body, true, nil
}

func (c *Cache) Set(ctx context.Context, path string, body []byte) error {
	if err := c.client.Set(ctx, Key(path), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached page: %w", err)
	}
	return nil
}
