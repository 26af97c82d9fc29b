package domain

import "math"

// StopSuggestion 单持仓止损/止盈建议
type StopSuggestion struct {
	Ticker        string   `json:"ticker"`
	EntryPrice    float64  `json:"entry_price"`
	StopLoss      *float64 `json:"stop_loss"`
	TakeProfit    *float64 `json:"take_profit"`
	StopLossPct   *float64 `json:"stop_loss_pct"`
	TakeProfitPct *float64 `json:"take_profit_pct"`
	Error         string   `json:"error,omitempty"`
}

// StopSuggestions 基于持仓在请求期限上的波动率给出建议价位：
// 止损 = entry × (1 − k₁×σ)，止盈 = entry × (1 + k₂×σ)，
// σ 为日波动率按 √horizon 缩放后的期限波动率。
func (a *Analyzer) StopSuggestions(positions []Position, prices map[string]PriceSeries) []StopSuggestion {
	horizon := math.Sqrt(float64(a.cfg.HorizonDays))
	out := make([]StopSuggestion, 0, len(positions))

	for _, p := range positions {
		entry := StopSuggestion{Ticker: p.Ticker, EntryPrice: p.EntryPrice}
		if p.EntryPrice <= 0 {
			entry.Error = "entry price must be positive"
			out = append(out, entry)
			continue
		}
		series, ok := prices[p.Ticker]
		if !ok {
			entry.Error = "no price history"
			out = append(out, entry)
			continue
		}
		returns := DailyReturns(series.Points)
		if len(returns) < a.cfg.MinObservations {
			entry.Error = "insufficient return history"
			out = append(out, entry)
			continue
		}

		vol := stdevOf(returns) * horizon
		stopLossPct := a.cfg.StopLossMultiple * vol
		takeProfitPct := a.cfg.TakeProfitMultiple * vol
		stopLoss := p.EntryPrice * (1 - stopLossPct)
		takeProfit := p.EntryPrice * (1 + takeProfitPct)

		entry.StopLoss = &stopLoss
		entry.TakeProfit = &takeProfit
		entry.StopLossPct = &stopLossPct
		entry.TakeProfitPct = &takeProfitPct
		out = append(out, entry)
	}
	return out
}
