package domain

import "time"

// 事件主题
const (
	StrategyCreatedEventType = "strategy.created"
	StrategyUpdatedEventType = "strategy.updated"
	StrategyDeletedEventType = "strategy.deleted"
)

// DomainEvent 领域事件接口
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StrategyCreatedEvent 策略创建事件
type StrategyCreatedEvent struct {
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *StrategyCreatedEvent) EventType() string     { return StrategyCreatedEventType }
func (e *StrategyCreatedEvent) OccurredAt() time.Time { return e.Timestamp }

// StrategyUpdatedEvent 策略更新事件
type StrategyUpdatedEvent struct {
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *StrategyUpdatedEvent) EventType() string     { return StrategyUpdatedEventType }
func (e *StrategyUpdatedEvent) OccurredAt() time.Time { return e.Timestamp }

// StrategyDeletedEvent 策略删除事件，回测与模拟盘服务据此级联清理
type StrategyDeletedEvent struct {
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *StrategyDeletedEvent) EventType() string     { return StrategyDeletedEventType }
func (e *StrategyDeletedEvent) OccurredAt() time.Time { return e.Timestamp }
