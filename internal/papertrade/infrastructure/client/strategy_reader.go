// Package client 模拟盘服务对策略上下文的只读适配
package client

import (
	"context"
	"errors"

	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"gorm.io/gorm"
)

// GormStrategyReader 基于共享 MySQL 的策略读取器
type GormStrategyReader struct {
	db *gorm.DB
}

// NewGormStrategyReader 创建策略读取器
func NewGormStrategyReader(db *gorm.DB) *GormStrategyReader {
	return &GormStrategyReader{db: db}
}

// GetStrategy 读取策略及其条件（按评估顺序排序）
func (r *GormStrategyReader) GetStrategy(ctx context.Context, strategyID string) (*strategydomain.Strategy, []strategydomain.StrategyCondition, error) {
	var strategy strategydomain.Strategy
	if err := r.db.WithContext(ctx).Where("strategy_id = ?", strategyID).First(&strategy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, strategydomain.ErrStrategyNotFound
		}
		return nil, nil, err
	}

	var conditions []strategydomain.StrategyCondition
	if err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("eval_order ASC").
		Find(&conditions).Error; err != nil {
		return nil, nil, err
	}
	return &strategy, conditions, nil
}
