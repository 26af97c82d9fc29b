package domain

import (
	"math"
	"sort"
)

// VaRResult 历史法 VaR 结果；Value 与 Pct 以负数表达损失
type VaRResult struct {
	Value           *float64 `json:"value"`
	Pct             *float64 `json:"pct"`
	Method          string   `json:"method"`
	ConfidenceLevel float64  `json:"confidence_level"`
	HorizonDays     int      `json:"horizon_days"`
	Error           string   `json:"error,omitempty"`
}

// PortfolioEquitySeries 以各持仓数量乘当日收盘价重建组合权益序列，
// 仅保留全部标的都有报价的日期，按日期升序返回。
func PortfolioEquitySeries(positions []Position, prices map[string]PriceSeries) []PricePoint {
	if len(positions) == 0 {
		return nil
	}

	closeByDate := make(map[string]map[string]float64)
	for _, p := range positions {
		series, ok := prices[p.Ticker]
		if !ok {
			return nil
		}
		for _, point := range series.Points {
			key := dateKey(point.Date)
			if closeByDate[key] == nil {
				closeByDate[key] = make(map[string]float64, len(positions))
			}
			closeByDate[key][p.Ticker] = point.Close
		}
	}

	var equity []PricePoint
	for _, point := range prices[positions[0].Ticker].Points {
		closes := closeByDate[dateKey(point.Date)]
		if len(closes) != len(positions) {
			continue
		}
		value := 0.0
		for _, p := range positions {
			value += p.Quantity * closes[p.Ticker]
		}
		equity = append(equity, PricePoint{Date: point.Date, Close: value})
	}
	sort.Slice(equity, func(i, j int) bool { return equity[i].Date.Before(equity[j].Date) })
	return equity
}

// ValueAtRisk 历史法：取组合日收益经验分布的 (1−c) 百分位，
// 按 √horizon 缩放到请求期限。历史不足时返回带 error 字段的结果。
func (a *Analyzer) ValueAtRisk(portfolioValue float64, portfolioReturns []float64) VaRResult {
	result := VaRResult{
		Method:          "historical",
		ConfidenceLevel: a.cfg.ConfidenceLevel,
		HorizonDays:     a.cfg.HorizonDays,
	}
	if len(portfolioReturns) < a.cfg.MinObservations {
		result.Error = "insufficient return history for VaR"
		return result
	}

	pct := percentileOf(portfolioReturns, 1-a.cfg.ConfidenceLevel)
	pct *= math.Sqrt(float64(a.cfg.HorizonDays))
	// VaR 表达为损失，收益分布整体为正时截断到 0
	if pct > 0 {
		pct = 0
	}
	value := pct * portfolioValue

	result.Pct = &pct
	result.Value = &value
	return result
}
