package domain

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
)

// 年化换算常数：一年交易日数
const tradingDaysPerYear = 252

// Engine 回测引擎。无状态、无副作用，可跨策略/标的并行运行。
type Engine struct{}

// NewEngine 创建回测引擎
func NewEngine() *Engine { return &Engine{} }

// Run 对历史指标序列逐 K 线驱动条件评估，维护模拟资金与持仓，
// 产出成交流水、权益曲线与汇总指标。
// 首根 K 线仅作为前一根种子；序列结束时未平仓位不强制平仓，
// 只计入期末市值权益，不参与胜负统计。
// 空序列返回全 null 指标与零成交的结果，而非错误。
func (e *Engine) Run(
	strategy *strategydomain.Strategy,
	conditions []strategydomain.StrategyCondition,
	rule strategydomain.RuleEvaluator,
	ticker, period string,
	bars []strategydomain.Bar,
) (*Backtest, []BacktestTrade, error) {
	if err := strategy.Validate(conditions); err != nil {
		return nil, nil, err
	}
	evaluator, err := strategydomain.EvaluatorFor(strategy, conditions, rule)
	if err != nil {
		return nil, nil, err
	}

	initialCapital := strategy.InitialCapital.InexactFloat64()
	capital := initialCapital

	var (
		trades     []BacktestTrade
		curve      []EquityPoint
		openQty    int64
		entryPrice float64
		seq        int
	)

	for i := 1; i < len(bars); i++ {
		prev, cur := &bars[i-1], &bars[i]

		if openQty == 0 {
			if evaluator.EvaluateEntry(cur, prev) && cur.Close > 0 {
				qty := int64(math.Floor(capital * strategy.PositionSizePct / cur.Close))
				if qty >= 1 {
					capital -= float64(qty) * cur.Close
					openQty = qty
					entryPrice = cur.Close
					seq++
					trades = append(trades, BacktestTrade{
						Seq:            seq,
						TradeDate:      cur.Date,
						Side:           TradeSideBuy,
						Price:          decimal.NewFromFloat(cur.Close),
						Quantity:       qty,
						RunningCapital: decimal.NewFromFloat(capital),
					})
				}
			}
		} else if evaluator.EvaluateExit(cur, prev) {
			capital += float64(openQty) * cur.Close
			pnl := (cur.Close - entryPrice) * float64(openQty)
			seq++
			trades = append(trades, BacktestTrade{
				Seq:            seq,
				TradeDate:      cur.Date,
				Side:           TradeSideSell,
				Price:          decimal.NewFromFloat(cur.Close),
				Quantity:       openQty,
				ProfitLoss:     &pnl,
				RunningCapital: decimal.NewFromFloat(capital),
			})
			openQty = 0
		}

		curve = append(curve, EquityPoint{
			Date:   cur.Date,
			Equity: capital + float64(openQty)*cur.Close,
		})
	}

	result := &Backtest{
		StrategyID:     strategy.StrategyID,
		UserID:         strategy.UserID,
		Ticker:         ticker,
		Period:         period,
		Status:         BacktestStatusCompleted,
		InitialCapital: strategy.InitialCapital,
		FinalCapital:   strategy.InitialCapital,
		EquityCurve:    curve,
	}
	if len(bars) > 0 {
		start, end := bars[0].Date, bars[len(bars)-1].Date
		result.StartDate = &start
		result.EndDate = &end
	}
	if raw, err := json.Marshal(curve); err == nil {
		result.EquityCurveJSON = string(raw)
	}

	deriveSummary(result, trades, curve, initialCapital)
	return result, trades, nil
}

// deriveSummary 由已平仓成交与权益曲线推导汇总指标。
// 不可计算的指标（夏普、盈亏比、年化）解析为 null，从不作为异常传播。
func deriveSummary(result *Backtest, trades []BacktestTrade, curve []EquityPoint, initialCapital float64) {
	if len(curve) == 0 {
		return
	}

	finalEquity := curve[len(curve)-1].Equity
	result.FinalCapital = decimal.NewFromFloat(finalEquity)

	totalReturn := 0.0
	if initialCapital > 0 {
		totalReturn = finalEquity/initialCapital - 1
	}
	result.TotalReturn = &totalReturn

	if result.StartDate != nil && result.EndDate != nil {
		days := result.EndDate.Sub(*result.StartDate).Hours() / 24
		if days >= 1 {
			annualized := math.Pow(1+totalReturn, 365/days) - 1
			result.AnnualizedReturn = &annualized
		}
	}

	// 夏普比率：日收益均值 / 标准差 × √252；不足 2 个收益观测或零标准差时为 null
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity != 0 {
			returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
		}
	}
	if len(returns) >= 2 {
		mean := meanOf(returns)
		sd := stdevOf(returns, mean)
		if sd > 0 {
			sharpe := mean / sd * math.Sqrt(tradingDaysPerYear)
			result.SharpeRatio = &sharpe
		}
	}

	// 最大回撤：权益曲线峰谷最大跌幅，负百分比
	maxDD := 0.0
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	result.MaxDrawdown = &maxDD

	// 胜负统计：只统计已平仓回合，期末未平仓位不计入
	var (
		closed, winning     int
		grossWin, grossLoss float64
	)
	for _, t := range trades {
		if t.Side != TradeSideSell || t.ProfitLoss == nil {
			continue
		}
		closed++
		if *t.ProfitLoss > 0 {
			winning++
			grossWin += *t.ProfitLoss
		} else {
			grossLoss += *t.ProfitLoss
		}
	}
	losing := closed - winning
	result.TotalTrades = closed
	result.WinningTrades = winning
	result.LosingTrades = losing

	winRate := 0.0
	if closed > 0 {
		winRate = float64(winning) / float64(closed)
	}
	result.WinRate = &winRate

	if grossLoss < 0 {
		pf := grossWin / math.Abs(grossLoss)
		result.ProfitFactor = &pf
	}
	if winning > 0 {
		avgWin := grossWin / float64(winning)
		result.AverageWin = &avgWin
	}
	if losing > 0 {
		avgLoss := grossLoss / float64(losing)
		result.AverageLoss = &avgLoss
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
