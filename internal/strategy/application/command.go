// Package application 策略服务应用层，编排聚合校验、持久化与事件发布。
package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
)

// ConditionInput 条件输入
type ConditionInput struct {
	Phase            string   `json:"phase"`
	Indicator        string   `json:"indicator"`
	Operator         string   `json:"operator"`
	Threshold        *float64 `json:"threshold,omitempty"`
	CompareIndicator *string  `json:"compare_indicator,omitempty"`
	Logic            string   `json:"logic"`
	Order            int      `json:"order"`
}

// CreateStrategyCommand 创建策略命令
type CreateStrategyCommand struct {
	UserID          string           `json:"user_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Type            string           `json:"type"`
	RuleJSON        string           `json:"rule_json,omitempty"`
	InitialCapital  float64          `json:"initial_capital"`
	PositionSizePct float64          `json:"position_size_pct"`
	Conditions      []ConditionInput `json:"conditions"`
}

// UpdateStrategyCommand 更新策略命令，条件整组替换
type UpdateStrategyCommand struct {
	StrategyID      string           `json:"strategy_id"`
	UserID          string           `json:"user_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	InitialCapital  float64          `json:"initial_capital"`
	PositionSizePct float64          `json:"position_size_pct"`
	Conditions      []ConditionInput `json:"conditions"`
}

// DeleteStrategyCommand 删除策略命令
type DeleteStrategyCommand struct {
	StrategyID string `json:"strategy_id"`
	UserID     string `json:"user_id"`
}

// StrategyCommandService 策略命令服务
type StrategyCommandService struct {
	repo      domain.StrategyRepository
	publisher domain.EventPublisher
}

// NewStrategyCommandService 创建策略命令服务
func NewStrategyCommandService(repo domain.StrategyRepository, publisher domain.EventPublisher) *StrategyCommandService {
	return &StrategyCommandService{repo: repo, publisher: publisher}
}

// CreateStrategy 创建策略，校验失败在持久化之前拒绝
func (s *StrategyCommandService) CreateStrategy(ctx context.Context, cmd CreateStrategyCommand) (*domain.Strategy, error) {
	strategyID := fmt.Sprintf("ST%d", idgen.GenID())
	strategy := domain.NewStrategy(
		strategyID,
		cmd.UserID,
		cmd.Name,
		cmd.Description,
		domain.StrategyType(cmd.Type),
		decimal.NewFromFloat(cmd.InitialCapital),
		cmd.PositionSizePct,
	)
	strategy.RuleJSON = cmd.RuleJSON

	conditions := toConditions(strategyID, cmd.Conditions)
	if err := strategy.Validate(conditions); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, strategy, conditions); err != nil {
		return nil, fmt.Errorf("failed to save strategy: %w", err)
	}
	s.publishEvents(ctx, strategy)

	logging.Info(ctx, "strategy created", "strategy_id", strategyID, "user_id", cmd.UserID, "type", cmd.Type)
	return strategy, nil
}

// UpdateStrategy 更新策略基础信息与条件
func (s *StrategyCommandService) UpdateStrategy(ctx context.Context, cmd UpdateStrategyCommand) (*domain.Strategy, error) {
	strategy, _, err := s.repo.FindByID(ctx, cmd.StrategyID)
	if err != nil {
		return nil, err
	}
	if strategy.UserID != cmd.UserID {
		return nil, domain.ErrNotStrategyOwner
	}

	strategy.Name = cmd.Name
	strategy.Description = cmd.Description
	strategy.InitialCapital = decimal.NewFromFloat(cmd.InitialCapital)
	strategy.PositionSizePct = cmd.PositionSizePct

	conditions := toConditions(strategy.StrategyID, cmd.Conditions)
	if err := strategy.Validate(conditions); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, strategy, conditions); err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}
	s.publishEvents(ctx, strategy)
	return strategy, nil
}

// DeleteStrategy 删除策略；条件同事务删除，回测与模拟盘记录经事件级联清理
func (s *StrategyCommandService) DeleteStrategy(ctx context.Context, cmd DeleteStrategyCommand) error {
	strategy, _, err := s.repo.FindByID(ctx, cmd.StrategyID)
	if err != nil {
		return err
	}
	if strategy.UserID != cmd.UserID {
		return domain.ErrNotStrategyOwner
	}

	if err := s.repo.Delete(ctx, cmd.StrategyID); err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	strategy.MarkDeleted()
	s.publishEvents(ctx, strategy)
	logging.Info(ctx, "strategy deleted", "strategy_id", cmd.StrategyID, "user_id", cmd.UserID)
	return nil
}

func (s *StrategyCommandService) publishEvents(ctx context.Context, strategy *domain.Strategy) {
	for _, event := range strategy.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			logging.Error(ctx, "failed to publish strategy event", "event_type", event.EventType(), "error", err)
		}
	}
	strategy.ClearDomainEvents()
}

func toConditions(strategyID string, inputs []ConditionInput) []domain.StrategyCondition {
	conditions := make([]domain.StrategyCondition, 0, len(inputs))
	for _, in := range inputs {
		conditions = append(conditions, domain.StrategyCondition{
			StrategyID:       strategyID,
			Phase:            domain.ConditionPhase(in.Phase),
			Indicator:        in.Indicator,
			Operator:         in.Operator,
			Threshold:        in.Threshold,
			CompareIndicator: in.CompareIndicator,
			Logic:            domain.ConditionLogic(in.Logic),
			Order:            in.Order,
		})
	}
	return conditions
}
