package domain

import "context"

// StrategyRepository 策略仓储接口
type StrategyRepository interface {
	Save(ctx context.Context, strategy *Strategy, conditions []StrategyCondition) error
	FindByID(ctx context.Context, strategyID string) (*Strategy, []StrategyCondition, error)
	FindByUserID(ctx context.Context, userID string, offset, limit int) ([]Strategy, int64, error)
	// Delete 在同一事务内删除策略与其全部条件
	Delete(ctx context.Context, strategyID string) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}
