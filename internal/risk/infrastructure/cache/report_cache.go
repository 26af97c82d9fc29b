// Package cache 风险报告的 Redis 缓存适配
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/investtrack/internal/risk/domain"
	"github.com/wyfcoding/investtrack/pkg/cache"
)

// RedisReportCache 实现 application.ReportCache
type RedisReportCache struct {
	redis *cache.RedisCache
}

// NewRedisReportCache 创建报告缓存
func NewRedisReportCache(redis *cache.RedisCache) *RedisReportCache {
	return &RedisReportCache{redis: redis}
}

func reportKey(portfolioID string) string {
	return fmt.Sprintf("risk:report:%s", portfolioID)
}

// GetReport 读取缓存报告；未命中返回 (nil, nil)
func (c *RedisReportCache) GetReport(ctx context.Context, portfolioID string) (*domain.Report, error) {
	var report domain.Report
	if err := c.redis.GetJSON(ctx, reportKey(portfolioID), &report); err != nil {
		return nil, err
	}
	if report.GeneratedAt.IsZero() {
		return nil, nil
	}
	return &report, nil
}

// SetReport 写入缓存报告
func (c *RedisReportCache) SetReport(ctx context.Context, portfolioID string, report *domain.Report, ttl time.Duration) error {
	return c.redis.SetJSON(ctx, reportKey(portfolioID), report, ttl)
}
