// Package domain 风险分析引擎领域层：
// 对组合快照与历史价格序列做只读计算，按请求生成风险指标，不持久化。
// 数据不足一律落在结果的 error 字段上，报告始终尽力返回。
package domain

import "time"

// Position 组合持仓快照
type Position struct {
	Ticker       string  `json:"ticker"`
	Quantity     float64 `json:"quantity"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	Weight       float64 `json:"weight"`
}

// MarketValue 持仓市值
func (p Position) MarketValue() float64 { return p.Quantity * p.CurrentPrice }

// PricePoint 单日收盘价
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries 单标的按日期升序的价格序列
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Fundamentals 标的基本面（行业归属）
type Fundamentals struct {
	Ticker   string `json:"ticker"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// Config 风险计算参数
type Config struct {
	ConfidenceLevel        float64 `json:"confidence_level"`
	HorizonDays            int     `json:"horizon_days"`
	LookbackDays           int     `json:"lookback_days"`
	ConcentrationThreshold float64 `json:"concentration_threshold"`
	StopLossMultiple       float64 `json:"stop_loss_multiple"`
	TakeProfitMultiple     float64 `json:"take_profit_multiple"`
	MinObservations        int     `json:"min_observations"`
	TradingDaysPerYear     int     `json:"trading_days_per_year"`
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		ConfidenceLevel:        0.95,
		HorizonDays:            1,
		LookbackDays:           252,
		ConcentrationThreshold: 0.25,
		StopLossMultiple:       1.5,
		TakeProfitMultiple:     2.5,
		MinObservations:        20,
		TradingDaysPerYear:     252,
	}
}

// Analyzer 风险分析器；全部方法无副作用，可并发调用
type Analyzer struct {
	cfg Config
}

// NewAnalyzer 创建分析器
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = 0.95
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 1
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = 20
	}
	if cfg.TradingDaysPerYear <= 0 {
		cfg.TradingDaysPerYear = 252
	}
	return &Analyzer{cfg: cfg}
}

// NormalizeWeights 按市值归一化持仓权重，权重和为 1.0
func NormalizeWeights(positions []Position) []Position {
	total := 0.0
	for _, p := range positions {
		total += p.MarketValue()
	}
	out := make([]Position, len(positions))
	copy(out, positions)
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i].Weight = out[i].MarketValue() / total
	}
	return out
}

// PortfolioValue 组合总市值
func PortfolioValue(positions []Position) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.MarketValue()
	}
	return total
}

// Report 风险报告；各指标独立计算，互不影响
type Report struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	PortfolioValue  float64               `json:"portfolio_value"`
	Positions       []Position            `json:"positions"`
	VaR             VaRResult             `json:"var"`
	Drawdown        DrawdownResult        `json:"drawdown"`
	Beta            BetaResult            `json:"beta"`
	Volatility      VolatilityResult      `json:"volatility"`
	Diversification DiversificationResult `json:"diversification"`
	Correlation     CorrelationResult     `json:"correlation"`
	Stops           []StopSuggestion      `json:"stops"`
}
