// Package mysql 回测服务 MySQL 仓储层，基于 GORM。
package mysql

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wyfcoding/investtrack/internal/backtest/domain"
	"gorm.io/gorm"
)

type backtestRepository struct {
	db *gorm.DB
}

// NewBacktestRepository 创建回测仓储
func NewBacktestRepository(db *gorm.DB) domain.BacktestRepository {
	return &backtestRepository{db: db}
}

// SaveResult 单事务写入回测与全部成交流水；任一步失败整体回滚
func (r *backtestRepository) SaveResult(ctx context.Context, backtest *domain.Backtest, trades []domain.BacktestTrade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(backtest).Error; err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		return tx.Create(&trades).Error
	})
}

func (r *backtestRepository) FindByID(ctx context.Context, backtestID string) (*domain.Backtest, []domain.BacktestTrade, error) {
	var backtest domain.Backtest
	if err := r.db.WithContext(ctx).Where("backtest_id = ?", backtestID).First(&backtest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrBacktestNotFound
		}
		return nil, nil, err
	}
	if backtest.EquityCurveJSON != "" {
		_ = json.Unmarshal([]byte(backtest.EquityCurveJSON), &backtest.EquityCurve)
	}

	var trades []domain.BacktestTrade
	if err := r.db.WithContext(ctx).
		Where("backtest_id = ?", backtestID).
		Order("seq ASC").
		Find(&trades).Error; err != nil {
		return nil, nil, err
	}
	return &backtest, trades, nil
}

func (r *backtestRepository) FindByStrategyID(ctx context.Context, strategyID string, offset, limit int) ([]domain.Backtest, int64, error) {
	var backtests []domain.Backtest
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Backtest{}).Where("strategy_id = ?", strategyID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&backtests).Error; err != nil {
		return nil, 0, err
	}
	return backtests, total, nil
}

func (r *backtestRepository) Delete(ctx context.Context, backtestID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("backtest_id = ?", backtestID).Delete(&domain.BacktestTrade{}).Error; err != nil {
			return err
		}
		return tx.Where("backtest_id = ?", backtestID).Delete(&domain.Backtest{}).Error
	})
}

// DeleteByStrategyID 删除策略名下全部回测及流水
func (r *backtestRepository) DeleteByStrategyID(ctx context.Context, strategyID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.Backtest{}).
			Where("strategy_id = ?", strategyID).
			Pluck("backtest_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("backtest_id IN ?", ids).Delete(&domain.BacktestTrade{}).Error; err != nil {
			return err
		}
		return tx.Where("strategy_id = ?", strategyID).Delete(&domain.Backtest{}).Error
	})
}
