package client

import (
	"context"

	"github.com/wyfcoding/investtrack/internal/risk/domain"
	"gorm.io/gorm"
)

// TickerFundamental 基本面采集方写入的行业归属行
type TickerFundamental struct {
	ID       uint   `gorm:"primarykey"`
	Ticker   string `gorm:"column:ticker;type:varchar(20);uniqueIndex;not null"`
	Sector   string `gorm:"column:sector;type:varchar(64)"`
	Industry string `gorm:"column:industry;type:varchar(64)"`
}

// TableName 指定表名
func (TickerFundamental) TableName() string { return "ticker_fundamentals" }

// GormFundamentalsProvider 基于共享 MySQL 的基本面读取器
type GormFundamentalsProvider struct {
	db *gorm.DB
}

// NewGormFundamentalsProvider 创建基本面读取器
func NewGormFundamentalsProvider(db *gorm.DB) *GormFundamentalsProvider {
	return &GormFundamentalsProvider{db: db}
}

// GetFundamentals 批量读取行业归属；缺失的标的不在结果中
func (p *GormFundamentalsProvider) GetFundamentals(ctx context.Context, tickers []string) (map[string]domain.Fundamentals, error) {
	var rows []TickerFundamental
	if err := p.db.WithContext(ctx).
		Where("ticker IN ?", tickers).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]domain.Fundamentals, len(rows))
	for _, row := range rows {
		out[row.Ticker] = domain.Fundamentals{
			Ticker:   row.Ticker,
			Sector:   row.Sector,
			Industry: row.Industry,
		}
	}
	return out, nil
}
