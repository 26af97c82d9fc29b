// Package domain 模拟盘服务领域层：
// 定义长周期模拟交易会话聚合（状态机）与持仓实体。
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"gorm.io/gorm"
)

// PaperTradeStatus 会话状态
type PaperTradeStatus string

const (
	StatusActive  PaperTradeStatus = "ACTIVE"
	StatusPaused  PaperTradeStatus = "PAUSED"
	StatusStopped PaperTradeStatus = "STOPPED" // 终态
)

// PaperTrade 模拟交易会话聚合根。
// 同一会话任意时刻至多一笔未平仓位（单仓位模型）。
type PaperTrade struct {
	gorm.Model
	PaperTradeID    string           `gorm:"column:paper_trade_id;type:varchar(32);uniqueIndex;not null" json:"paper_trade_id"`
	StrategyID      string           `gorm:"column:strategy_id;type:varchar(32);index;not null" json:"strategy_id"`
	UserID          string           `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Ticker          string           `gorm:"column:ticker;type:varchar(20);not null" json:"ticker"`
	Status          PaperTradeStatus `gorm:"column:status;type:varchar(8);index;not null" json:"status"`
	InitialCapital  decimal.Decimal  `gorm:"column:initial_capital;type:decimal(20,4);not null" json:"initial_capital"`
	CurrentCapital  decimal.Decimal  `gorm:"column:current_capital;type:decimal(20,4);not null" json:"current_capital"`
	PositionSizePct float64          `gorm:"column:position_size_pct;type:decimal(6,4);not null" json:"position_size_pct"`
	StartedAt       time.Time        `gorm:"column:started_at;not null" json:"started_at"`
	StoppedAt       *time.Time       `gorm:"column:stopped_at" json:"stopped_at,omitempty"`
	LastUpdate      time.Time        `gorm:"column:last_update;not null" json:"last_update"`
	LastPrice       float64          `gorm:"column:last_price;type:decimal(20,8);not null;default:0" json:"last_price"`

	// 仓储负责装载与回写
	Positions []PaperTradePosition `gorm:"-" json:"positions,omitempty"`

	domainEvents []DomainEvent `gorm:"-" json:"-"`
}

// PaperTradePosition 模拟持仓；平仓后记录已实现盈亏
type PaperTradePosition struct {
	gorm.Model
	PaperTradeID string           `gorm:"column:paper_trade_id;type:varchar(32);index;not null" json:"paper_trade_id"`
	Ticker       string           `gorm:"column:ticker;type:varchar(20);not null" json:"ticker"`
	Quantity     int64            `gorm:"column:quantity;not null" json:"quantity"`
	EntryPrice   decimal.Decimal  `gorm:"column:entry_price;type:decimal(20,8);not null" json:"entry_price"`
	EntryDate    time.Time        `gorm:"column:entry_date;not null" json:"entry_date"`
	ExitPrice    *decimal.Decimal `gorm:"column:exit_price;type:decimal(20,8)" json:"exit_price,omitempty"`
	ExitDate     *time.Time       `gorm:"column:exit_date" json:"exit_date,omitempty"`
	RealizedPnL  *float64         `gorm:"column:realized_pnl;type:decimal(20,6)" json:"realized_pnl,omitempty"`
}

func (PaperTrade) TableName() string         { return "paper_trades" }
func (PaperTradePosition) TableName() string { return "paper_trade_positions" }

// IsOpen 仓位是否未平
func (p *PaperTradePosition) IsOpen() bool { return p.ExitPrice == nil }

// NewPaperTrade 创建会话，初始为 ACTIVE、无持仓
func NewPaperTrade(paperTradeID, strategyID, userID, ticker string, initialCapital decimal.Decimal, positionSizePct float64) *PaperTrade {
	now := time.Now()
	pt := &PaperTrade{
		PaperTradeID:    paperTradeID,
		StrategyID:      strategyID,
		UserID:          userID,
		Ticker:          ticker,
		Status:          StatusActive,
		InitialCapital:  initialCapital,
		CurrentCapital:  initialCapital,
		PositionSizePct: positionSizePct,
		StartedAt:       now,
		LastUpdate:      now,
	}
	pt.addEvent(&PaperTradeStartedEvent{PaperTradeID: paperTradeID, StrategyID: strategyID, UserID: userID, Timestamp: now})
	return pt
}

// OpenPosition 返回当前未平仓位，无则为 nil
func (pt *PaperTrade) OpenPosition() *PaperTradePosition {
	for i := range pt.Positions {
		if pt.Positions[i].IsOpen() {
			return &pt.Positions[i]
		}
	}
	return nil
}

// Pause ACTIVE → PAUSED；暂停期间 tick 被忽略，已有仓位保持不动
func (pt *PaperTrade) Pause() error {
	if pt.Status != StatusActive {
		return ErrInvalidStateTransition
	}
	pt.Status = StatusPaused
	pt.addEvent(&PaperTradePausedEvent{PaperTradeID: pt.PaperTradeID, Timestamp: time.Now()})
	return nil
}

// Resume PAUSED → ACTIVE 是唯一合法的重新激活路径，资金与仓位原样保留
func (pt *PaperTrade) Resume() error {
	if pt.Status != StatusPaused {
		return ErrInvalidStateTransition
	}
	pt.Status = StatusActive
	pt.addEvent(&PaperTradeResumedEvent{PaperTradeID: pt.PaperTradeID, Timestamp: time.Now()})
	return nil
}

// Stop ACTIVE|PAUSED → STOPPED（终态）。
// 未平仓位不自动平仓：它在记录中保持未平，持续按市值报告未实现盈亏。
func (pt *PaperTrade) Stop() error {
	if pt.Status != StatusActive && pt.Status != StatusPaused {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	pt.Status = StatusStopped
	pt.StoppedAt = &now
	pt.addEvent(&PaperTradeStoppedEvent{PaperTradeID: pt.PaperTradeID, Timestamp: now})
	return nil
}

// Tick 用最新 K 线重评估一次。仅 ACTIVE 会话处理；
// 其余状态拒绝且不做任何变更。持仓中出现的再次入场信号为 no-op。
func (pt *PaperTrade) Tick(cur, prev *strategydomain.Bar, evaluator strategydomain.RuleEvaluator) (bool, error) {
	if pt.Status != StatusActive {
		return false, ErrSessionNotActive
	}

	changed := false
	open := pt.OpenPosition()

	if open == nil {
		if evaluator.EvaluateEntry(cur, prev) && cur.Close > 0 {
			capital := pt.CurrentCapital.InexactFloat64()
			qty := int64(capital * pt.PositionSizePct / cur.Close)
			if qty >= 1 {
				cost := decimal.NewFromFloat(float64(qty) * cur.Close)
				pt.CurrentCapital = pt.CurrentCapital.Sub(cost)
				pt.Positions = append(pt.Positions, PaperTradePosition{
					PaperTradeID: pt.PaperTradeID,
					Ticker:       cur.Ticker,
					Quantity:     qty,
					EntryPrice:   decimal.NewFromFloat(cur.Close),
					EntryDate:    cur.Date,
				})
				pt.addEvent(&PositionOpenedEvent{
					PaperTradeID: pt.PaperTradeID,
					Ticker:       cur.Ticker,
					Quantity:     qty,
					Price:        cur.Close,
					Timestamp:    cur.Date,
				})
				changed = true
			}
		}
	} else if evaluator.EvaluateExit(cur, prev) {
		exitPrice := decimal.NewFromFloat(cur.Close)
		proceeds := decimal.NewFromFloat(float64(open.Quantity) * cur.Close)
		pnl := (cur.Close - open.EntryPrice.InexactFloat64()) * float64(open.Quantity)
		exitDate := cur.Date

		pt.CurrentCapital = pt.CurrentCapital.Add(proceeds)
		open.ExitPrice = &exitPrice
		open.ExitDate = &exitDate
		open.RealizedPnL = &pnl
		pt.addEvent(&PositionClosedEvent{
			PaperTradeID: pt.PaperTradeID,
			Ticker:       open.Ticker,
			Quantity:     open.Quantity,
			Price:        cur.Close,
			RealizedPnL:  pnl,
			Timestamp:    cur.Date,
		})
		changed = true
	}

	pt.LastPrice = cur.Close
	pt.LastUpdate = time.Now()
	return changed, nil
}

// StatusSnapshot 会话状态快照
type StatusSnapshot struct {
	PaperTradeID  string           `json:"paper_trade_id"`
	Status        PaperTradeStatus `json:"status"`
	Equity        float64          `json:"equity"`
	TotalReturn   float64          `json:"total_return"`
	OpenPositions int              `json:"open_positions"`
	MarketValue   float64          `json:"market_value"`
	StartedAt     time.Time        `json:"started_at"`
	LastUpdate    time.Time        `json:"last_update"`
}

// Snapshot 计算当前权益（现金 + 未平仓位按最新价计的市值）与累计收益
func (pt *PaperTrade) Snapshot() StatusSnapshot {
	marketValue := 0.0
	openCount := 0
	for i := range pt.Positions {
		if pt.Positions[i].IsOpen() {
			openCount++
			marketValue += float64(pt.Positions[i].Quantity) * pt.LastPrice
		}
	}
	equity := pt.CurrentCapital.InexactFloat64() + marketValue

	totalReturn := 0.0
	if initial := pt.InitialCapital.InexactFloat64(); initial > 0 {
		totalReturn = equity/initial - 1
	}

	return StatusSnapshot{
		PaperTradeID:  pt.PaperTradeID,
		Status:        pt.Status,
		Equity:        equity,
		TotalReturn:   totalReturn,
		OpenPositions: openCount,
		MarketValue:   marketValue,
		StartedAt:     pt.StartedAt,
		LastUpdate:    pt.LastUpdate,
	}
}

func (pt *PaperTrade) addEvent(event DomainEvent) {
	pt.domainEvents = append(pt.domainEvents, event)
}

// GetDomainEvents 获取待发布的领域事件
func (pt *PaperTrade) GetDomainEvents() []DomainEvent { return pt.domainEvents }

// ClearDomainEvents 清空领域事件
func (pt *PaperTrade) ClearDomainEvents() { pt.domainEvents = nil }

// 错误定义
var (
	ErrPaperTradeNotFound     = errors.New("paper trade not found")
	ErrNotPaperTradeOwner     = errors.New("not the paper trade owner")
	ErrSessionNotActive       = errors.New("paper trade session is not active")
	ErrInvalidStateTransition = errors.New("invalid paper trade state transition")
)
