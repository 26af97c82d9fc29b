package client

import (
	"context"
	"encoding/json"
	"time"

	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"gorm.io/gorm"
)

// MarketBar 行情采集方写入的带指标 K 线行
type MarketBar struct {
	ID             uint      `gorm:"primarykey"`
	Ticker         string    `gorm:"column:ticker;type:varchar(20);index:idx_bar,priority:1;not null"`
	Period         string    `gorm:"column:period;type:varchar(16);index:idx_bar,priority:2;not null"`
	BarDate        time.Time `gorm:"column:bar_date;index:idx_bar,priority:3;not null"`
	Open           float64   `gorm:"column:open;type:decimal(20,8);not null"`
	High           float64   `gorm:"column:high;type:decimal(20,8);not null"`
	Low            float64   `gorm:"column:low;type:decimal(20,8);not null"`
	Close          float64   `gorm:"column:close;type:decimal(20,8);not null"`
	Volume         float64   `gorm:"column:volume;type:decimal(24,4);not null"`
	IndicatorsJSON string    `gorm:"column:indicators;type:json"`
}

// TableName 指定表名
func (MarketBar) TableName() string { return "market_bars" }

// GormMarketDataReader 基于共享 MySQL 的历史指标序列读取器
type GormMarketDataReader struct {
	db *gorm.DB
}

// NewGormMarketDataReader 创建行情读取器
func NewGormMarketDataReader(db *gorm.DB) *GormMarketDataReader {
	return &GormMarketDataReader{db: db}
}

// GetBars 按时间升序读取指定区间的 K 线序列
func (r *GormMarketDataReader) GetBars(ctx context.Context, ticker, period string, start, end time.Time) ([]strategydomain.Bar, error) {
	var rows []MarketBar
	if err := r.db.WithContext(ctx).
		Where("ticker = ? AND period = ? AND bar_date >= ? AND bar_date <= ?", ticker, period, start, end).
		Order("bar_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	bars := make([]strategydomain.Bar, 0, len(rows))
	for _, row := range rows {
		bar := strategydomain.Bar{
			Ticker: row.Ticker,
			Date:   row.BarDate,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
		if row.IndicatorsJSON != "" {
			// 指标缺口保持为 nil，条件评估时按失败处理
			_ = json.Unmarshal([]byte(row.IndicatorsJSON), &bar.Indicators)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
