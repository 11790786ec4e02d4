package invalidate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is where invalidated paths are published.
const DefaultChannel = "faqpage:invalidate"

// Redis drops the cached copy of a page and announces the path to subscribers.
type Redis struct {
	client    *redis.Client
	channel   string
	keyPrefix string
}

// NewRedis builds a notifier. keyPrefix must match the page cache's prefix.
func NewRedis(client *redis.Client, channel, keyPrefix string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel, keyPrefix: keyPrefix}
}

func (r *Redis) Invalidate(ctx context.Context, path string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.keyPrefix+path)
	pipe.Publish(ctx, r.channel, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate %s: %w", path, err)
	}
	return nil
}
