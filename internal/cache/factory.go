package cache

import (
	"context"

	"go.uber.org/zap"
)

// New returns a Redis store when enabled and reachable, otherwise an in-memory store.
func New(ctx context.Context, redisURL string, enabled bool, log *zap.Logger) Store {
	if !enabled || redisURL == "" {
		log.Info("cache: using in-memory store")
		return NewMemory()
	}
	r, err := NewRedis(ctx, redisURL, "")
	if err != nil {
		log.Warn("cache: redis unavailable, falling back to memory", zap.Error(err))
		return NewMemory()
	}
	log.Info("cache: using redis")
	return r
}
