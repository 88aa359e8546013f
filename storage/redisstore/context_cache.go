package redisstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/internal/cache"
	"github.com/Adhikkesh/Erflog/interview"
)

const contextCacheType = "interview_context"

// ContextCache 为 ContextLoader 提供读穿缓存。缓存故障只记录日志，不影响加载。
type ContextCache struct {
	next   interview.ContextLoader
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewContextCache 包装 next
func NewContextCache(next interview.ContextLoader, m *cache.Manager, ttl time.Duration, logger *zap.Logger) *ContextCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextCache{
		next:   next,
		cache:  m,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "context_cache")),
	}
}

func (c *ContextCache) key(userID, jobID string) string {
	return c.cache.Key("ctx", userID, jobID)
}

// LoadContext implements interview.ContextLoader.
func (c *ContextCache) LoadContext(ctx context.Context, userID, jobID string) (*interview.Profile, error) {
	key := c.key(userID, jobID)

	var cached interview.Profile
	err := c.cache.GetJSON(ctx, contextCacheType, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !cache.IsCacheMiss(err) {
		c.logger.Warn("context cache read failed", zap.String("key", key), zap.Error(err))
	}

	p, err := c.next.LoadContext(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		if err := c.cache.SetJSON(ctx, key, p, c.ttl); err != nil {
			c.logger.Warn("context cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

// Invalidate drops the cached context of one user and job.
func (c *ContextCache) Invalidate(ctx context.Context, userID, jobID string) error {
	return c.cache.Delete(ctx, c.key(userID, jobID))
}
