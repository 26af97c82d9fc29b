package domain

// CorrelationEntry 对某一标的的相关系数
type CorrelationEntry struct {
	Ticker      string   `json:"ticker"`
	Correlation *float64 `json:"correlation"`
	Error       string   `json:"error,omitempty"`
}

// PositionCorrelation 单持仓对其余持仓的相关列表
type PositionCorrelation struct {
	Ticker       string             `json:"ticker"`
	Correlations []CorrelationEntry `json:"correlations"`
}

// CorrelationResult 相关性分析结果
type CorrelationResult struct {
	Positions []PositionCorrelation `json:"positions"`
	Error     string                `json:"error,omitempty"`
}

// Correlation 每个持仓对其余持仓在共同日期窗口上的 Pearson 相关
func (a *Analyzer) Correlation(positions []Position, prices map[string]PriceSeries) CorrelationResult {
	if len(positions) < 2 {
		return CorrelationResult{Error: "correlation requires at least two positions"}
	}

	result := CorrelationResult{Positions: make([]PositionCorrelation, 0, len(positions))}
	for _, p := range positions {
		entry := PositionCorrelation{Ticker: p.Ticker}
		for _, other := range positions {
			if other.Ticker == p.Ticker {
				continue
			}
			pair := CorrelationEntry{Ticker: other.Ticker}

			left, ok1 := prices[p.Ticker]
			right, ok2 := prices[other.Ticker]
			if !ok1 || !ok2 {
				pair.Error = "no price history"
				entry.Correlations = append(entry.Correlations, pair)
				continue
			}
			ra, rb := alignedReturns(left.Points, right.Points)
			if len(ra) < a.cfg.MinObservations {
				pair.Error = "insufficient overlapping history"
				entry.Correlations = append(entry.Correlations, pair)
				continue
			}
			if corr, ok := pearsonOf(ra, rb); ok {
				pair.Correlation = &corr
			} else {
				pair.Error = "zero variance in return series"
			}
			entry.Correlations = append(entry.Correlations, pair)
		}
		result.Positions = append(result.Positions, entry)
	}
	return result
}
