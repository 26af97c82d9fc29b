// Package client 风险服务对行情与基本面数据的只读适配
package client

import (
	"context"
	"time"

	"github.com/wyfcoding/investtrack/internal/risk/domain"
	"gorm.io/gorm"
)

// GormMarketDataReader 基于共享 MySQL 的日线收盘价读取器
type GormMarketDataReader struct {
	db     *gorm.DB
	period string
}

// NewGormMarketDataReader 创建行情读取器；period 为取数的 K 线周期（通常 1d）
func NewGormMarketDataReader(db *gorm.DB, period string) *GormMarketDataReader {
	if period == "" {
		period = "1d"
	}
	return &GormMarketDataReader{db: db, period: period}
}

// GetPriceSeries 读取回看窗口内的收盘价序列，按日期升序
func (r *GormMarketDataReader) GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) (domain.PriceSeries, error) {
	since := time.Now().AddDate(0, 0, -lookbackDays)

	var rows []struct {
		BarDate time.Time
		Close   float64
	}
	if err := r.db.WithContext(ctx).
		Table("market_bars").
		Select("bar_date, close").
		Where("ticker = ? AND period = ? AND bar_date >= ?", ticker, r.period, since).
		Order("bar_date ASC").
		Scan(&rows).Error; err != nil {
		return domain.PriceSeries{}, err
	}

	series := domain.PriceSeries{Ticker: ticker, Points: make([]domain.PricePoint, 0, len(rows))}
	for _, row := range rows {
		series.Points = append(series.Points, domain.PricePoint{Date: row.BarDate, Close: row.Close})
	}
	return series, nil
}
