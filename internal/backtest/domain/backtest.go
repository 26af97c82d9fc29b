// Package domain 回测服务领域层：
// 定义回测结果聚合、成交流水实体与逐 K 线模拟引擎。
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 回测状态
const (
	BacktestStatusCompleted = "COMPLETED"
	BacktestStatusFailed    = "FAILED"
)

// 成交方向
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Backtest 回测结果聚合根。创建后不可变，仅随策略删除或用户删除级联移除。
type Backtest struct {
	gorm.Model
	BacktestID     string          `gorm:"column:backtest_id;type:varchar(32);uniqueIndex;not null" json:"backtest_id"`
	StrategyID     string          `gorm:"column:strategy_id;type:varchar(32);index;not null" json:"strategy_id"`
	UserID         string          `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Ticker         string          `gorm:"column:ticker;type:varchar(20);not null" json:"ticker"`
	Period         string          `gorm:"column:period;type:varchar(16);not null" json:"period"`
	Status         string          `gorm:"column:status;type:varchar(16);not null" json:"status"`
	StartDate      *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate        *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	InitialCapital decimal.Decimal `gorm:"column:initial_capital;type:decimal(20,4);not null" json:"initial_capital"`
	FinalCapital   decimal.Decimal `gorm:"column:final_capital;type:decimal(20,4);not null" json:"final_capital"`

	// 汇总指标；数据不足或无法计算时为 null，而非报错
	TotalReturn      *float64 `gorm:"column:total_return;type:decimal(12,6)" json:"total_return"`
	AnnualizedReturn *float64 `gorm:"column:annualized_return;type:decimal(12,6)" json:"annualized_return"`
	SharpeRatio      *float64 `gorm:"column:sharpe_ratio;type:decimal(12,6)" json:"sharpe_ratio"`
	MaxDrawdown      *float64 `gorm:"column:max_drawdown;type:decimal(12,6)" json:"max_drawdown"`
	WinRate          *float64 `gorm:"column:win_rate;type:decimal(12,6)" json:"win_rate"`
	ProfitFactor     *float64 `gorm:"column:profit_factor;type:decimal(12,6)" json:"profit_factor"`
	TotalTrades      int      `gorm:"column:total_trades;not null;default:0" json:"total_trades"`
	WinningTrades    int      `gorm:"column:winning_trades;not null;default:0" json:"winning_trades"`
	LosingTrades     int      `gorm:"column:losing_trades;not null;default:0" json:"losing_trades"`
	AverageWin       *float64 `gorm:"column:average_win;type:decimal(20,6)" json:"average_win"`
	AverageLoss      *float64 `gorm:"column:average_loss;type:decimal(20,6)" json:"average_loss"`

	EquityCurveJSON string `gorm:"column:equity_curve;type:json" json:"-"`

	// 内存视图，不落库
	EquityCurve []EquityPoint `gorm:"-" json:"equity_curve,omitempty"`
}

// BacktestTrade 回测成交流水，按 Seq 排序
type BacktestTrade struct {
	gorm.Model
	BacktestID     string          `gorm:"column:backtest_id;type:varchar(32);index;not null" json:"backtest_id"`
	Seq            int             `gorm:"column:seq;not null" json:"seq"`
	TradeDate      time.Time       `gorm:"column:trade_date;not null" json:"trade_date"`
	Side           string          `gorm:"column:side;type:varchar(4);not null" json:"side"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null" json:"price"`
	Quantity       int64           `gorm:"column:quantity;not null" json:"quantity"`
	ProfitLoss     *float64        `gorm:"column:profit_loss;type:decimal(20,6)" json:"profit_loss,omitempty"`
	RunningCapital decimal.Decimal `gorm:"column:running_capital;type:decimal(20,4);not null" json:"running_capital"`
}

// EquityPoint 权益曲线上的一个点（现金 + 持仓按市值计）
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

func (Backtest) TableName() string      { return "backtests" }
func (BacktestTrade) TableName() string { return "backtest_trades" }

// 错误定义
var (
	ErrBacktestNotFound = errors.New("backtest not found")
	ErrNotBacktestOwner = errors.New("not the backtest owner")
)
