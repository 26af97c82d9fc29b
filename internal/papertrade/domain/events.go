package domain

import "time"

// 事件类型常量
const (
	PaperTradeStartedEventType = "papertrade.started"
	PaperTradePausedEventType  = "papertrade.paused"
	PaperTradeResumedEventType = "papertrade.resumed"
	PaperTradeStoppedEventType = "papertrade.stopped"
	PositionOpenedEventType    = "papertrade.position.opened"
	PositionClosedEventType    = "papertrade.position.closed"
)

// DomainEvent 领域事件接口
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// PaperTradeStartedEvent 会话启动事件
type PaperTradeStartedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	StrategyID   string    `json:"strategy_id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PaperTradeStartedEvent) EventType() string     { return PaperTradeStartedEventType }
func (e *PaperTradeStartedEvent) OccurredAt() time.Time { return e.Timestamp }

// PaperTradePausedEvent 会话暂停事件
type PaperTradePausedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PaperTradePausedEvent) EventType() string     { return PaperTradePausedEventType }
func (e *PaperTradePausedEvent) OccurredAt() time.Time { return e.Timestamp }

// PaperTradeResumedEvent 会话恢复事件
type PaperTradeResumedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PaperTradeResumedEvent) EventType() string     { return PaperTradeResumedEventType }
func (e *PaperTradeResumedEvent) OccurredAt() time.Time { return e.Timestamp }

// PaperTradeStoppedEvent 会话终止事件
type PaperTradeStoppedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PaperTradeStoppedEvent) EventType() string     { return PaperTradeStoppedEventType }
func (e *PaperTradeStoppedEvent) OccurredAt() time.Time { return e.Timestamp }

// PositionOpenedEvent 开仓事件
type PositionOpenedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	Ticker       string    `json:"ticker"`
	Quantity     int64     `json:"quantity"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PositionOpenedEvent) EventType() string     { return PositionOpenedEventType }
func (e *PositionOpenedEvent) OccurredAt() time.Time { return e.Timestamp }

// PositionClosedEvent 平仓事件
type PositionClosedEvent struct {
	PaperTradeID string    `json:"paper_trade_id"`
	Ticker       string    `json:"ticker"`
	Quantity     int64     `json:"quantity"`
	Price        float64   `json:"price"`
	RealizedPnL  float64   `json:"realized_pnl"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *PositionClosedEvent) EventType() string     { return PositionClosedEventType }
func (e *PositionClosedEvent) OccurredAt() time.Time { return e.Timestamp }
