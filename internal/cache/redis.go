package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores values under "<prefix>v:<key>" and keeps a set "<prefix>t:<tag>" of keys per
// tag so Revalidate can delete them. A tag set expires with the last entry written to it.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects using a redis:// URL and pings the server.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisWithClient(client, prefix), nil
}

func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "storefront:cache:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.prefix+"v:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.prefix+"v:"+key, value, ttl)
		for _, t := range tags {
			tagKey := r.prefix + "t:" + t
			p.SAdd(ctx, tagKey, key)
			if ttl > 0 {
				p.Expire(ctx, tagKey, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Revalidate(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		tagKey := r.prefix + "t:" + t
		keys, err := r.client.SMembers(ctx, tagKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis revalidate %s: %w", t, err)
		}
		del := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			del = append(del, r.prefix+"v:"+k)
		}
		del = append(del, tagKey)
		if err := r.client.Del(ctx, del...).Err(); err != nil {
			return fmt.Errorf("redis revalidate %s: %w", t, err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
