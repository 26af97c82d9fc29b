package domain

// PositionBeta 单持仓 Beta
type PositionBeta struct {
	Ticker string   `json:"ticker"`
	Weight float64  `json:"weight"`
	Beta   *float64 `json:"beta"`
	Error  string   `json:"error,omitempty"`
}

// BetaResult Beta 分析结果
type BetaResult struct {
	Positions     []PositionBeta `json:"positions"`
	PortfolioBeta *float64       `json:"portfolio_beta"`
	Error         string         `json:"error,omitempty"`
}

// Beta 逐持仓对基准收益做线性回归取斜率；组合 Beta 为有效持仓的
// 权重加权和，无效持仓被剔除且权重在有效集内重新归一。
func (a *Analyzer) Beta(positions []Position, prices map[string]PriceSeries, benchmark PriceSeries) BetaResult {
	if len(benchmark.Points) < a.cfg.MinObservations+1 {
		return BetaResult{Error: "insufficient benchmark history for beta"}
	}

	result := BetaResult{Positions: make([]PositionBeta, 0, len(positions))}
	weightedSum := 0.0
	validWeight := 0.0

	for _, p := range positions {
		entry := PositionBeta{Ticker: p.Ticker, Weight: p.Weight}
		series, ok := prices[p.Ticker]
		if !ok {
			entry.Error = "no price history"
			result.Positions = append(result.Positions, entry)
			continue
		}

		returns, benchReturns := alignedReturns(series.Points, benchmark.Points)
		if len(returns) < a.cfg.MinObservations {
			entry.Error = "insufficient overlapping history"
			result.Positions = append(result.Positions, entry)
			continue
		}
		benchVar := covarianceOf(benchReturns, benchReturns)
		if benchVar == 0 {
			entry.Error = "benchmark returns have zero variance"
			result.Positions = append(result.Positions, entry)
			continue
		}

		beta := covarianceOf(returns, benchReturns) / benchVar
		entry.Beta = &beta
		result.Positions = append(result.Positions, entry)

		weightedSum += p.Weight * beta
		validWeight += p.Weight
	}

	if validWeight > 0 {
		portfolioBeta := weightedSum / validWeight
		result.PortfolioBeta = &portfolioBeta
	} else {
		result.Error = "no position with sufficient history for beta"
	}
	return result
}
