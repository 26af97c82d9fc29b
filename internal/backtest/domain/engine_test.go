package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
)

func fptr(v float64) *float64 { return &v }

func rsiStrategy(t *testing.T) (*strategydomain.Strategy, []strategydomain.StrategyCondition) {
	t.Helper()
	s := strategydomain.NewStrategy("ST1", "U1", "rsi-reversal", "",
		strategydomain.StrategyTypeGraphical, decimal.NewFromInt(100000), 0.5)
	conditions := []strategydomain.StrategyCondition{
		{
			StrategyID: "ST1",
			Phase:      strategydomain.PhaseEntry,
			Indicator:  strategydomain.IndicatorRSI,
			Operator:   strategydomain.OperatorLessThan,
			Threshold:  fptr(30),
			Logic:      strategydomain.LogicAnd,
		},
		{
			StrategyID: "ST1",
			Phase:      strategydomain.PhaseExit,
			Indicator:  strategydomain.IndicatorRSI,
			Operator:   strategydomain.OperatorGreaterThan,
			Threshold:  fptr(70),
			Logic:      strategydomain.LogicAnd,
		},
	}
	return s, conditions
}

func barsWithRSI(closes, rsi []float64) []strategydomain.Bar {
	bars := make([]strategydomain.Bar, len(closes))
	for i := range closes {
		bars[i] = strategydomain.Bar{
			Ticker: "AAPL",
			Date:   time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Open:   closes[i],
			High:   closes[i],
			Low:    closes[i],
			Close:  closes[i],
			Volume: 1000,
			Indicators: map[string]*float64{
				strategydomain.IndicatorRSI: fptr(rsi[i]),
			},
		}
	}
	return bars
}

// RSI 先跌破 30 再冲破 70 各一次：恰好一笔已平、盈利的回合
func TestRunSingleWinningRoundTrip(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	bars := barsWithRSI(
		[]float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109},
		[]float64{50, 25, 28, 35, 45, 55, 65, 75, 72, 60},
	)

	result, trades, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("trades = %d, want BUY+SELL", len(trades))
	}
	buy, sell := trades[0], trades[1]
	if buy.Side != TradeSideBuy || sell.Side != TradeSideSell {
		t.Fatalf("sides = %s/%s, want BUY/SELL", buy.Side, sell.Side)
	}
	// 入场：第一根 RSI<30 的 K 线（价格 101），50% 仓位 → 495 股
	if buy.Quantity != 495 || !buy.Price.Equal(decimal.NewFromFloat(101)) {
		t.Fatalf("buy = %d @ %s, want 495 @ 101", buy.Quantity, buy.Price)
	}
	// 出场：第一根 RSI>70 的 K 线（价格 107）
	if !sell.Price.Equal(decimal.NewFromFloat(107)) {
		t.Fatalf("sell price = %s, want 107", sell.Price)
	}
	if sell.ProfitLoss == nil || *sell.ProfitLoss != (107-101)*495 {
		t.Fatalf("pnl = %v, want %v", sell.ProfitLoss, (107-101)*495.0)
	}

	if result.TotalTrades != 1 || result.WinningTrades != 1 || result.LosingTrades != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0",
			result.TotalTrades, result.WinningTrades, result.LosingTrades)
	}
	if result.WinRate == nil || *result.WinRate != 1.0 {
		t.Fatalf("win rate = %v, want 1.0", result.WinRate)
	}
	if result.TotalReturn == nil || *result.TotalReturn <= 0 {
		t.Fatalf("total return = %v, want positive", result.TotalReturn)
	}
	// 全胜无亏损：盈亏比分母为零 → null
	if result.ProfitFactor != nil {
		t.Fatalf("profit factor = %v, want null with zero gross loss", *result.ProfitFactor)
	}
	if result.AverageLoss != nil {
		t.Fatalf("average loss = %v, want null", *result.AverageLoss)
	}
}

// 平价序列无任何交叉：零成交、期末资金等于期初、回撤为零
func TestRunFlatSeries(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	closes := make([]float64, 10)
	rsi := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
		rsi[i] = 50
	}

	result, trades, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", barsWithRSI(closes, rsi))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("trades = %d, want 0", len(trades))
	}
	if !result.FinalCapital.Equal(strategy.InitialCapital) {
		t.Fatalf("final capital = %s, want %s", result.FinalCapital, strategy.InitialCapital)
	}
	if result.MaxDrawdown == nil || *result.MaxDrawdown != 0 {
		t.Fatalf("max drawdown = %v, want 0", result.MaxDrawdown)
	}
	if result.TotalTrades != 0 {
		t.Fatalf("total trades = %d, want 0", result.TotalTrades)
	}
	// 零回合时胜率为 0 而非 null
	if result.WinRate == nil || *result.WinRate != 0 {
		t.Fatalf("win rate = %v, want 0.0", result.WinRate)
	}
}

func TestRunEquityCurveInvariants(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	bars := barsWithRSI(
		[]float64{100, 99, 98, 97, 101, 103, 105, 104, 102, 106},
		[]float64{40, 28, 26, 29, 40, 55, 75, 65, 50, 45},
	)

	result, _, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 首根 K 线仅做种子：曲线长度 = 处理的 K 线数
	if len(result.EquityCurve) != len(bars)-1 {
		t.Fatalf("curve length = %d, want %d", len(result.EquityCurve), len(bars)-1)
	}
	last := result.EquityCurve[len(result.EquityCurve)-1].Equity
	if !result.FinalCapital.Equal(decimal.NewFromFloat(last)) {
		t.Fatalf("final capital = %s, want last equity %v", result.FinalCapital, last)
	}
}

func TestRunTradePairing(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	// 两次完整回合 + 结尾一笔未平仓位
	bars := barsWithRSI(
		[]float64{100, 101, 105, 104, 102, 103, 108, 107, 105, 104},
		[]float64{50, 25, 75, 50, 28, 45, 72, 55, 26, 28},
	)

	result, trades, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	open := int64(0)
	for _, trade := range trades {
		switch trade.Side {
		case TradeSideBuy:
			if open != 0 {
				t.Fatal("opened a position while already holding one")
			}
			open = trade.Quantity
			if trade.ProfitLoss != nil {
				t.Fatal("buy trade must not carry realized pnl")
			}
		case TradeSideSell:
			if open == 0 {
				t.Fatal("sell without open position")
			}
			if trade.Quantity != open {
				t.Fatalf("sell quantity %d != open %d", trade.Quantity, open)
			}
			if trade.ProfitLoss == nil {
				t.Fatal("sell trade must carry realized pnl")
			}
			open = 0
		}
	}
	// 末笔为未平仓 BUY
	if open == 0 {
		t.Fatal("expected a trailing open position")
	}
	if trades[len(trades)-1].Side != TradeSideBuy {
		t.Fatalf("last trade side = %s, want BUY", trades[len(trades)-1].Side)
	}

	// 未平仓回合不参与胜负统计
	if result.TotalTrades != result.WinningTrades+result.LosingTrades {
		t.Fatalf("total %d != winning %d + losing %d",
			result.TotalTrades, result.WinningTrades, result.LosingTrades)
	}
	if result.TotalTrades != 2 {
		t.Fatalf("closed round trips = %d, want 2", result.TotalTrades)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	bars := barsWithRSI(
		[]float64{100, 99, 103, 104, 102, 105, 108, 107, 109, 110},
		[]float64{40, 25, 45, 55, 29, 50, 75, 60, 72, 65},
	)

	engine := NewEngine()
	first, firstTrades, err := engine.Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, secondTrades, err := engine.Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(firstTrades, secondTrades) {
		t.Fatal("identical inputs produced different trade ledgers")
	}
	if !reflect.DeepEqual(first.EquityCurve, second.EquityCurve) {
		t.Fatal("identical inputs produced different equity curves")
	}
	if !first.FinalCapital.Equal(second.FinalCapital) {
		t.Fatal("identical inputs produced different final capital")
	}
}

func TestRunEmptySeries(t *testing.T) {
	strategy, conditions := rsiStrategy(t)

	result, trades, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", nil)
	if err != nil {
		t.Fatalf("Run on empty series: %v", err)
	}
	if len(trades) != 0 || len(result.EquityCurve) != 0 {
		t.Fatal("empty series must produce no trades and no curve")
	}
	if !result.FinalCapital.Equal(strategy.InitialCapital) {
		t.Fatalf("final capital = %s, want initial", result.FinalCapital)
	}
	if result.TotalReturn != nil || result.SharpeRatio != nil {
		t.Fatal("metrics on empty series must stay null")
	}
	if result.Status != BacktestStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", result.Status)
	}
}

func TestRunRejectsInvalidStrategyBeforeSimulation(t *testing.T) {
	strategy, _ := rsiStrategy(t)
	bars := barsWithRSI([]float64{100, 101}, []float64{50, 25})

	_, _, err := NewEngine().Run(strategy, nil, nil, "AAPL", "1d", bars)
	if !errors.Is(err, strategydomain.ErrNoEntryConditions) {
		t.Fatalf("err = %v, want ErrNoEntryConditions", err)
	}
}

// 指标缺口按失败处理：缺 RSI 的 K 线上不触发任何信号
func TestRunIndicatorGapFailsClosed(t *testing.T) {
	strategy, conditions := rsiStrategy(t)
	bars := barsWithRSI(
		[]float64{100, 101, 102, 103},
		[]float64{50, 25, 75, 50},
	)
	bars[1].Indicators = nil // 本应入场的 K 线缺指标

	_, trades, err := NewEngine().Run(strategy, conditions, nil, "AAPL", "1d", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("trades = %d, want 0 with missing indicator", len(trades))
	}
}
