package domain

import "time"

// Bar 表示一根带技术指标的 K 线数据点。
// OHLCV 由行情采集方提供，Indicators 为已计算好的指标值，
// 缺失的指标以 nil 表示（条件评估时按失败处理，不抛错）。
type Bar struct {
	Ticker     string              `json:"ticker"`
	Date       time.Time           `json:"date"`
	Open       float64             `json:"open"`
	High       float64             `json:"high"`
	Low        float64             `json:"low"`
	Close      float64             `json:"close"`
	Volume     float64             `json:"volume"`
	Indicators map[string]*float64 `json:"indicators"`
}

// IndicatorValue 读取指标值，价格类指标直接映射到 OHLCV 字段。
// 未知或缺失的指标返回 nil。
func (b *Bar) IndicatorValue(name string) *float64 {
	if b == nil {
		return nil
	}
	switch name {
	case IndicatorClose:
		v := b.Close
		return &v
	case IndicatorOpen:
		v := b.Open
		return &v
	case IndicatorHigh:
		v := b.High
		return &v
	case IndicatorLow:
		v := b.Low
		return &v
	case IndicatorVolume:
		v := b.Volume
		return &v
	}
	if b.Indicators == nil {
		return nil
	}
	return b.Indicators[name]
}
