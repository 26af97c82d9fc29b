package domain

import (
	"math"
	"testing"
	"time"
)

func seriesFromReturns(ticker string, start float64, returns []float64) PriceSeries {
	points := []PricePoint{{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Close: start}}
	price := start
	for i, r := range returns {
		price *= 1 + r
		points = append(points, PricePoint{
			Date:  time.Date(2025, 1, 2+i, 0, 0, 0, 0, time.UTC),
			Close: price,
		})
	}
	return PriceSeries{Ticker: ticker, Points: points}
}

func alternating(n int, magnitude float64) []float64 {
	returns := make([]float64, n)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = magnitude
		} else {
			returns[i] = -magnitude
		}
	}
	return returns
}

func negated(returns []float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = -r
	}
	return out
}

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) < eps }

func TestNormalizeWeightsSumToOne(t *testing.T) {
	positions := NormalizeWeights([]Position{
		{Ticker: "AAPL", Quantity: 10, CurrentPrice: 150},
		{Ticker: "MSFT", Quantity: 5, CurrentPrice: 400},
		{Ticker: "GOOG", Quantity: 3, CurrentPrice: 170},
	})
	sum := 0.0
	for _, p := range positions {
		sum += p.Weight
	}
	if !almostEqual(sum, 1.0, 1e-9) {
		t.Fatalf("weights sum = %v, want 1.0", sum)
	}
}

func TestHerfindahlBounds(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	// 4 个等权持仓：Herfindahl = 1/4，有效持仓数 = 4
	equal := []Position{
		{Ticker: "A", Weight: 0.25}, {Ticker: "B", Weight: 0.25},
		{Ticker: "C", Weight: 0.25}, {Ticker: "D", Weight: 0.25},
	}
	result := analyzer.Diversification(equal, nil)
	if !almostEqual(result.Herfindahl, 0.25, 1e-9) {
		t.Fatalf("herfindahl = %v, want 0.25", result.Herfindahl)
	}
	if !almostEqual(result.EffectivePositions, 4, 1e-9) {
		t.Fatalf("effective positions = %v, want 4", result.EffectivePositions)
	}

	// 不等权：Herfindahl ∈ [1/n, 1]
	skewed := []Position{
		{Ticker: "A", Weight: 0.7}, {Ticker: "B", Weight: 0.2}, {Ticker: "C", Weight: 0.1},
	}
	result = analyzer.Diversification(skewed, nil)
	if result.Herfindahl < 1.0/3 || result.Herfindahl > 1.0 {
		t.Fatalf("herfindahl = %v, want within [1/3, 1]", result.Herfindahl)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected concentration warning for 70% position")
	}

	// 单一持仓：完全集中
	single := []Position{{Ticker: "A", Weight: 1.0}}
	result = analyzer.Diversification(single, nil)
	if !almostEqual(result.Herfindahl, 1.0, 1e-9) {
		t.Fatalf("herfindahl = %v, want 1.0", result.Herfindahl)
	}
}

func TestDiversificationSectorAggregation(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	positions := []Position{
		{Ticker: "AAPL", Weight: 0.2}, {Ticker: "MSFT", Weight: 0.2},
		{Ticker: "XOM", Weight: 0.2}, {Ticker: "JPM", Weight: 0.4},
	}
	fundamentals := map[string]Fundamentals{
		"AAPL": {Ticker: "AAPL", Sector: "Technology", Industry: "Consumer Electronics"},
		"MSFT": {Ticker: "MSFT", Sector: "Technology", Industry: "Software"},
		"XOM":  {Ticker: "XOM", Sector: "Energy", Industry: "Oil & Gas"},
	}

	result := analyzer.Diversification(positions, fundamentals)

	var tech, unknown *SectorExposure
	for i := range result.Sectors {
		switch result.Sectors[i].Sector {
		case "Technology":
			tech = &result.Sectors[i]
		case "UNKNOWN":
			unknown = &result.Sectors[i]
		}
	}
	if tech == nil || !almostEqual(tech.Weight, 0.4, 1e-9) {
		t.Fatalf("technology sector = %+v, want weight 0.4", tech)
	}
	if len(tech.Industries) != 2 {
		t.Fatalf("technology industries = %v, want 2", tech.Industries)
	}
	if unknown == nil || !almostEqual(unknown.Weight, 0.4, 1e-9) {
		t.Fatalf("unknown sector = %+v, want weight 0.4 for JPM", unknown)
	}

	// JPM 权重 0.4 与 Technology/UNKNOWN 行业权重 0.4 均超过 0.25 阈值
	if len(result.Warnings) < 2 {
		t.Fatalf("warnings = %v, want ticker and sector warnings", result.Warnings)
	}
}

func TestVaRIsNonPositive(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	returns := alternating(100, 0.02)
	result := analyzer.ValueAtRisk(100000, returns)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Pct == nil || *result.Pct > 0 {
		t.Fatalf("var pct = %v, want non-positive", result.Pct)
	}
	if result.Value == nil || *result.Value > 0 {
		t.Fatalf("var value = %v, want non-positive", result.Value)
	}
	if result.Method != "historical" || result.ConfidenceLevel != 0.95 {
		t.Fatalf("metadata = %s/%v, want historical/0.95", result.Method, result.ConfidenceLevel)
	}

	// 全部为正收益时 VaR 截断到 0
	allPositive := make([]float64, 60)
	for i := range allPositive {
		allPositive[i] = 0.01
	}
	result = analyzer.ValueAtRisk(100000, allPositive)
	if result.Pct == nil || *result.Pct != 0 {
		t.Fatalf("var pct on all-positive returns = %v, want 0", result.Pct)
	}
}

func TestVaRInsufficientHistory(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	result := analyzer.ValueAtRisk(100000, alternating(5, 0.01))
	if result.Error == "" {
		t.Fatal("expected insufficient history error")
	}
	if result.Value != nil || result.Pct != nil {
		t.Fatal("insufficient history must not produce values")
	}
}

func TestVaRHorizonScaling(t *testing.T) {
	cfg := DefaultConfig()
	returns := alternating(100, 0.02)

	oneDay := NewAnalyzer(cfg).ValueAtRisk(100000, returns)
	cfg.HorizonDays = 4
	fourDay := NewAnalyzer(cfg).ValueAtRisk(100000, returns)

	if oneDay.Pct == nil || fourDay.Pct == nil {
		t.Fatal("expected var values")
	}
	if !almostEqual(*fourDay.Pct, *oneDay.Pct*2, 1e-9) {
		t.Fatalf("4-day var = %v, want double of 1-day %v", *fourDay.Pct, *oneDay.Pct)
	}
}

func TestDrawdownWithRecovery(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	values := []float64{100, 110, 99, 88, 95, 112, 115}
	equity := make([]PricePoint, len(values))
	for i, v := range values {
		equity[i] = PricePoint{Date: time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC), Close: v}
	}

	result := analyzer.Drawdown(equity)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if !almostEqual(result.MaxDrawdown, (88-110)/110.0, 1e-9) {
		t.Fatalf("max drawdown = %v, want %v", result.MaxDrawdown, (88-110)/110.0)
	}
	if result.MaxDrawdownDate == nil || result.MaxDrawdownDate.Day() != 4 {
		t.Fatalf("max drawdown date = %v, want 2025-03-04", result.MaxDrawdownDate)
	}
	// 3/4 触底，3/6 权益 112 首次重回峰值 110：恢复 2 天
	if result.RecoveryDays == nil || *result.RecoveryDays != 2 {
		t.Fatalf("recovery days = %v, want 2", result.RecoveryDays)
	}
	// 序列末端创新高：当前回撤为 0
	if result.CurrentDrawdown != 0 {
		t.Fatalf("current drawdown = %v, want 0", result.CurrentDrawdown)
	}
	if len(result.Series) != len(values) {
		t.Fatalf("series length = %d, want %d", len(result.Series), len(values))
	}
}

func TestDrawdownNotRecovered(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	values := []float64{100, 120, 90, 95}
	equity := make([]PricePoint, len(values))
	for i, v := range values {
		equity[i] = PricePoint{Date: time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC), Close: v}
	}

	result := analyzer.Drawdown(equity)
	if result.RecoveryDays != nil {
		t.Fatalf("recovery days = %v, want null while under water", *result.RecoveryDays)
	}
	if result.CurrentDrawdown >= 0 {
		t.Fatalf("current drawdown = %v, want negative", result.CurrentDrawdown)
	}
}

func TestBetaAgainstSelfIsOne(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	benchmark := seriesFromReturns("SPY", 400, alternating(60, 0.01))
	prices := map[string]PriceSeries{
		"AAPL": seriesFromReturns("AAPL", 100, alternating(60, 0.01)),
	}
	positions := []Position{{Ticker: "AAPL", Weight: 1.0}}

	result := analyzer.Beta(positions, prices, benchmark)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.PortfolioBeta == nil || !almostEqual(*result.PortfolioBeta, 1.0, 1e-9) {
		t.Fatalf("portfolio beta = %v, want 1.0", result.PortfolioBeta)
	}
}

func TestBetaExcludesInvalidPositionsAndRenormalizes(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	benchmark := seriesFromReturns("SPY", 400, alternating(60, 0.01))
	prices := map[string]PriceSeries{
		"AAPL": seriesFromReturns("AAPL", 100, alternating(60, 0.01)),
		// MSFT 缺历史数据
	}
	positions := []Position{
		{Ticker: "AAPL", Weight: 0.5},
		{Ticker: "MSFT", Weight: 0.5},
	}

	result := analyzer.Beta(positions, prices, benchmark)
	if len(result.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(result.Positions))
	}
	var msft PositionBeta
	for _, p := range result.Positions {
		if p.Ticker == "MSFT" {
			msft = p
		}
	}
	if msft.Error == "" || msft.Beta != nil {
		t.Fatalf("msft = %+v, want per-position error without beta", msft)
	}
	// 有效权重重新归一：组合 Beta 仍为 AAPL 的 1.0
	if result.PortfolioBeta == nil || !almostEqual(*result.PortfolioBeta, 1.0, 1e-9) {
		t.Fatalf("portfolio beta = %v, want 1.0 after renormalization", result.PortfolioBeta)
	}
}

func TestCorrelationExtremes(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	base := alternating(60, 0.01)
	prices := map[string]PriceSeries{
		"A": seriesFromReturns("A", 100, base),
		"B": seriesFromReturns("B", 50, base),
		"C": seriesFromReturns("C", 80, negated(base)),
	}
	positions := []Position{
		{Ticker: "A", Weight: 0.4}, {Ticker: "B", Weight: 0.3}, {Ticker: "C", Weight: 0.3},
	}

	result := analyzer.Correlation(positions, prices)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}

	corr := func(from, to string) float64 {
		for _, p := range result.Positions {
			if p.Ticker != from {
				continue
			}
			for _, c := range p.Correlations {
				if c.Ticker == to {
					if c.Correlation == nil {
						t.Fatalf("correlation %s/%s missing: %s", from, to, c.Error)
					}
					return *c.Correlation
				}
			}
		}
		t.Fatalf("correlation %s/%s not reported", from, to)
		return 0
	}

	if got := corr("A", "B"); !almostEqual(got, 1.0, 1e-6) {
		t.Fatalf("corr(A,B) = %v, want 1.0", got)
	}
	if got := corr("A", "C"); !almostEqual(got, -1.0, 1e-6) {
		t.Fatalf("corr(A,C) = %v, want -1.0", got)
	}
}

func TestPortfolioVolatilityDiversification(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	base := alternating(60, 0.01)

	// 完全正相关：组合波动率 ≈ 权重加权平均
	correlated := map[string]PriceSeries{
		"A": seriesFromReturns("A", 100, base),
		"B": seriesFromReturns("B", 50, base),
	}
	positions := []Position{{Ticker: "A", Weight: 0.5}, {Ticker: "B", Weight: 0.5}}

	result := analyzer.Volatility(positions, correlated)
	if result.PortfolioVolatility == nil {
		t.Fatalf("portfolio volatility missing: %s", result.Error)
	}
	weightedAvg := 0.0
	for _, p := range result.Positions {
		if p.Volatility == nil {
			t.Fatalf("position %s volatility missing: %s", p.Ticker, p.Error)
		}
		weightedAvg += p.Weight * *p.Volatility
	}
	if !almostEqual(*result.PortfolioVolatility, weightedAvg, 1e-6) {
		t.Fatalf("portfolio vol = %v, want ≈ weighted average %v", *result.PortfolioVolatility, weightedAvg)
	}

	// 完全负相关：组合波动率严格小于加权平均
	hedged := map[string]PriceSeries{
		"A": seriesFromReturns("A", 100, base),
		"B": seriesFromReturns("B", 50, negated(base)),
	}
	result = analyzer.Volatility(positions, hedged)
	if result.PortfolioVolatility == nil {
		t.Fatalf("portfolio volatility missing: %s", result.Error)
	}
	weightedAvg = 0.0
	for _, p := range result.Positions {
		weightedAvg += p.Weight * *p.Volatility
	}
	if *result.PortfolioVolatility >= weightedAvg {
		t.Fatalf("hedged portfolio vol = %v, want < weighted average %v", *result.PortfolioVolatility, weightedAvg)
	}
}

func TestStopSuggestions(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	prices := map[string]PriceSeries{
		"AAPL": seriesFromReturns("AAPL", 100, alternating(60, 0.01)),
	}
	positions := []Position{{Ticker: "AAPL", EntryPrice: 100, Weight: 1.0}}

	out := analyzer.StopSuggestions(positions, prices)
	if len(out) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(out))
	}
	s := out[0]
	if s.Error != "" {
		t.Fatalf("unexpected error: %s", s.Error)
	}
	if s.StopLoss == nil || s.TakeProfit == nil || s.StopLossPct == nil || s.TakeProfitPct == nil {
		t.Fatal("expected all stop fields populated")
	}
	if *s.StopLoss >= 100 {
		t.Fatalf("stop loss = %v, want below entry", *s.StopLoss)
	}
	if *s.TakeProfit <= 100 {
		t.Fatalf("take profit = %v, want above entry", *s.TakeProfit)
	}
	// k₂/k₁ = 2.5/1.5：止盈偏移是止损偏移的 5/3 倍
	if !almostEqual(*s.TakeProfitPct / *s.StopLossPct, 2.5/1.5, 1e-9) {
		t.Fatalf("offset ratio = %v, want %v", *s.TakeProfitPct / *s.StopLossPct, 2.5/1.5)
	}
	if !almostEqual(*s.StopLoss, 100*(1-*s.StopLossPct), 1e-9) {
		t.Fatalf("stop loss = %v inconsistent with pct %v", *s.StopLoss, *s.StopLossPct)
	}

	// 无历史数据的标的带 error 字段
	out = analyzer.StopSuggestions([]Position{{Ticker: "TSLA", EntryPrice: 200}}, prices)
	if out[0].Error == "" || out[0].StopLoss != nil {
		t.Fatalf("suggestion = %+v, want error without levels", out[0])
	}
}

func TestPortfolioEquitySeriesAlignsDates(t *testing.T) {
	a := seriesFromReturns("A", 100, alternating(5, 0.01))
	b := seriesFromReturns("B", 50, alternating(5, 0.01))
	// B 缺最后一天
	b.Points = b.Points[:len(b.Points)-1]

	positions := []Position{
		{Ticker: "A", Quantity: 1, CurrentPrice: 100},
		{Ticker: "B", Quantity: 2, CurrentPrice: 50},
	}
	equity := PortfolioEquitySeries(positions, map[string]PriceSeries{"A": a, "B": b})
	if len(equity) != len(b.Points) {
		t.Fatalf("equity length = %d, want %d (common dates only)", len(equity), len(b.Points))
	}
	want := a.Points[0].Close + 2*b.Points[0].Close
	if !almostEqual(equity[0].Close, want, 1e-9) {
		t.Fatalf("equity[0] = %v, want %v", equity[0].Close, want)
	}
}
