package domain

import "math"

// PositionVolatility 单持仓年化波动率
type PositionVolatility struct {
	Ticker     string   `json:"ticker"`
	Weight     float64  `json:"weight"`
	Volatility *float64 `json:"volatility"`
	Error      string   `json:"error,omitempty"`
}

// VolatilityResult 波动率分析结果
type VolatilityResult struct {
	Positions           []PositionVolatility `json:"positions"`
	PortfolioVolatility *float64             `json:"portfolio_volatility"`
	Error               string               `json:"error,omitempty"`
}

// Volatility 单持仓年化波动率 = 日收益标准差 × √252；
// 组合波动率由协方差矩阵加权得出（σ_p² = ΣΣ wᵢwⱼ·covᵢⱼ），
// 以体现分散化收益，而非权重的简单加权平均。
func (a *Analyzer) Volatility(positions []Position, prices map[string]PriceSeries) VolatilityResult {
	annualize := math.Sqrt(float64(a.cfg.TradingDaysPerYear))
	result := VolatilityResult{Positions: make([]PositionVolatility, 0, len(positions))}

	type validPosition struct {
		weight float64
		series []PricePoint
	}
	var valid []validPosition
	validWeight := 0.0

	for _, p := range positions {
		entry := PositionVolatility{Ticker: p.Ticker, Weight: p.Weight}
		series, ok := prices[p.Ticker]
		if !ok {
			entry.Error = "no price history"
			result.Positions = append(result.Positions, entry)
			continue
		}
		returns := DailyReturns(series.Points)
		if len(returns) < a.cfg.MinObservations {
			entry.Error = "insufficient return history"
			result.Positions = append(result.Positions, entry)
			continue
		}

		vol := stdevOf(returns) * annualize
		entry.Volatility = &vol
		result.Positions = append(result.Positions, entry)

		valid = append(valid, validPosition{weight: p.Weight, series: series.Points})
		validWeight += p.Weight
	}

	if len(valid) == 0 || validWeight <= 0 {
		result.Error = "no position with sufficient history for volatility"
		return result
	}

	// 无效持仓剔除后在有效集内重新归一权重
	variance := 0.0
	for i := range valid {
		for j := range valid {
			wi := valid[i].weight / validWeight
			wj := valid[j].weight / validWeight
			ri, rj := alignedReturns(valid[i].series, valid[j].series)
			variance += wi * wj * covarianceOf(ri, rj)
		}
	}
	if variance < 0 {
		variance = 0
	}
	portfolioVol := math.Sqrt(variance) * annualize
	result.PortfolioVolatility = &portfolioVol
	return result
}
