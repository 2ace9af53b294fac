package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to url and returns nil when url is empty or the
// server does not answer a ping, so callers can fall back to in-process state.
func NewRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("level=warn msg=invalid REDIS_URL err=%v", err)
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("level=warn msg=redis unreachable, continuing without it addr=%s err=%v", opts.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
