// Package mysql 模拟盘服务 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	"gorm.io/gorm"
)

// PaperTradeRepository 模拟盘仓储
type PaperTradeRepository struct {
	db *gorm.DB
}

// NewPaperTradeRepository 创建仓储实例
func NewPaperTradeRepository(db *gorm.DB) *PaperTradeRepository {
	return &PaperTradeRepository{db: db}
}

// Save 同一事务内保存会话行与持仓变更
func (r *PaperTradeRepository) Save(ctx context.Context, pt *domain.PaperTrade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(pt).Error; err != nil {
			return err
		}
		for i := range pt.Positions {
			if err := tx.Save(&pt.Positions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID 按业务 ID 查询会话及其全部持仓
func (r *PaperTradeRepository) FindByID(ctx context.Context, paperTradeID string) (*domain.PaperTrade, error) {
	var pt domain.PaperTrade
	if err := r.db.WithContext(ctx).Where("paper_trade_id = ?", paperTradeID).First(&pt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaperTradeNotFound
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("paper_trade_id = ?", paperTradeID).
		Order("entry_date ASC").
		Find(&pt.Positions).Error; err != nil {
		return nil, err
	}
	return &pt, nil
}

// FindByUserID 按用户分页查询（不装载持仓）
func (r *PaperTradeRepository) FindByUserID(ctx context.Context, userID string, offset, limit int) ([]domain.PaperTrade, int64, error) {
	var sessions []domain.PaperTrade
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.PaperTrade{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("started_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// FindActive 列出全部 ACTIVE 会话，供调度方逐个 tick
func (r *PaperTradeRepository) FindActive(ctx context.Context) ([]domain.PaperTrade, error) {
	var sessions []domain.PaperTrade
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteByStrategyID 删除策略关联的全部会话与持仓
func (r *PaperTradeRepository) DeleteByStrategyID(ctx context.Context, strategyID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.PaperTrade{}).
			Where("strategy_id = ?", strategyID).
			Pluck("paper_trade_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("paper_trade_id IN ?", ids).Delete(&domain.PaperTradePosition{}).Error; err != nil {
			return err
		}
		return tx.Where("strategy_id = ?", strategyID).Delete(&domain.PaperTrade{}).Error
	})
}
