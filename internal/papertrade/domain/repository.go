package domain

import "context"

// PaperTradeRepository 模拟盘会话仓储接口。
// Save 同一事务内回写会话行与持仓变更。
type PaperTradeRepository interface {
	Save(ctx context.Context, pt *PaperTrade) error
	FindByID(ctx context.Context, paperTradeID string) (*PaperTrade, error)
	FindByUserID(ctx context.Context, userID string, offset, limit int) ([]PaperTrade, int64, error)
	FindActive(ctx context.Context) ([]PaperTrade, error)
	DeleteByStrategyID(ctx context.Context, strategyID string) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}
