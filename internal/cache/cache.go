// Package cache is a tag-revalidated read cache used in front of catalog, settings and
// translation lookups. Writers revalidate the tags they touch; readers never see stale data
// beyond the next revalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store keeps JSON-encoded values with a TTL and a set of tags.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// Revalidate drops every entry carrying any of the tags.
	Revalidate(ctx context.Context, tags ...string) error
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache failures never fail the read; fn's error does.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, tags []string, fn func() (T, error)) (T, error) {
	if s != nil {
		if raw, err := s.Get(ctx, key); err == nil {
			var v T
			if json.Unmarshal(raw, &v) == nil {
				return v, nil
			}
		}
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	if s != nil {
		if raw, mErr := json.Marshal(v); mErr == nil {
			_ = s.Set(ctx, key, raw, ttl, tags...)
		}
	}
	return v, nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, string, []byte, time.Duration, ...string) error {
	return nil
}
func (Nop) Revalidate(context.Context, ...string) error { return nil }
