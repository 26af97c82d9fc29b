// Package mysql 策略服务 MySQL 仓储层，基于 GORM。
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/investtrack/internal/strategy/domain"
	"gorm.io/gorm"
)

type strategyRepository struct {
	db *gorm.DB
}

// NewStrategyRepository 创建策略仓储
func NewStrategyRepository(db *gorm.DB) domain.StrategyRepository {
	return &strategyRepository{db: db}
}

// Save 保存策略及其条件；条件整组替换，与策略同事务提交
func (r *strategyRepository) Save(ctx context.Context, strategy *domain.Strategy, conditions []domain.StrategyCondition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(strategy).Error; err != nil {
			return err
		}
		if err := tx.Where("strategy_id = ?", strategy.StrategyID).Delete(&domain.StrategyCondition{}).Error; err != nil {
			return err
		}
		if len(conditions) == 0 {
			return nil
		}
		return tx.Create(&conditions).Error
	})
}

func (r *strategyRepository) FindByID(ctx context.Context, strategyID string) (*domain.Strategy, []domain.StrategyCondition, error) {
	var strategy domain.Strategy
	if err := r.db.WithContext(ctx).Where("strategy_id = ?", strategyID).First(&strategy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrStrategyNotFound
		}
		return nil, nil, err
	}

	var conditions []domain.StrategyCondition
	if err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("eval_order ASC").
		Find(&conditions).Error; err != nil {
		return nil, nil, err
	}
	return &strategy, conditions, nil
}

func (r *strategyRepository) FindByUserID(ctx context.Context, userID string, offset, limit int) ([]domain.Strategy, int64, error) {
	var strategies []domain.Strategy
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Strategy{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&strategies).Error; err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

// Delete 删除策略与其全部条件（级联，同一事务）
func (r *strategyRepository) Delete(ctx context.Context, strategyID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("strategy_id = ?", strategyID).Delete(&domain.StrategyCondition{}).Error; err != nil {
			return err
		}
		return tx.Where("strategy_id = ?", strategyID).Delete(&domain.Strategy{}).Error
	})
}
