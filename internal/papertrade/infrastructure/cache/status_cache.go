// Package cache 模拟盘状态快照的 Redis 缓存适配
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	"github.com/wyfcoding/investtrack/pkg/cache"
)

// RedisStatusCache 实现 application.StatusCache
type RedisStatusCache struct {
	redis *cache.RedisCache
}

// NewRedisStatusCache 创建状态缓存
func NewRedisStatusCache(redis *cache.RedisCache) *RedisStatusCache {
	return &RedisStatusCache{redis: redis}
}

func statusKey(paperTradeID string) string {
	return fmt.Sprintf("papertrade:status:%s", paperTradeID)
}

// GetSnapshot 读取快照；缓存未命中返回 (nil, nil)
func (c *RedisStatusCache) GetSnapshot(ctx context.Context, paperTradeID string) (*domain.StatusSnapshot, error) {
	var snapshot domain.StatusSnapshot
	if err := c.redis.GetJSON(ctx, statusKey(paperTradeID), &snapshot); err != nil {
		return nil, err
	}
	if snapshot.PaperTradeID == "" {
		return nil, nil
	}
	return &snapshot, nil
}

// SetSnapshot 写入快照
func (c *RedisStatusCache) SetSnapshot(ctx context.Context, snapshot *domain.StatusSnapshot, ttl time.Duration) error {
	return c.redis.SetJSON(ctx, statusKey(snapshot.PaperTradeID), snapshot, ttl)
}

// Invalidate 会话状态变更后失效快照
func (c *RedisStatusCache) Invalidate(ctx context.Context, paperTradeID string) error {
	return c.redis.Delete(ctx, statusKey(paperTradeID))
}
