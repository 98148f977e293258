package likes

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// addScript increments a counter and clamps it at zero in one round trip.
var addScript = redis.NewScript(`
local n = redis.call('INCRBY', KEYS[1], ARGV[1])
if n < 0 then
  redis.call('SET', KEYS[1], 0)
  n = 0
end
return n
`)

// Redis is a Store backed by Redis, shared by every instance of the site.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key (default "notionpress:likes:").
	Prefix string
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, errors.New("likes: redis address is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "notionpress:likes:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("likes: connect redis %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, prefix: opts.Prefix}, nil
}

func (r *Redis) key(slug string) string {
	return r.prefix + slug
}

func (r *Redis) Count(ctx context.Context, slug string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(slug)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("likes: count %q: %w", slug, err)
	}
	return floor(n), nil
}

func (r *Redis) Add(ctx context.Context, slug string, delta int64) (int64, error) {
	if slug == "" {
		return 0, ErrEmptySlug
	}
	n, err := addScript.Run(ctx, r.client, []string{r.key(slug)}, delta).Int64()
	if err != nil {
		return 0, fmt.Errorf("likes: add %q: %w", slug, err)
	}
	return n, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
