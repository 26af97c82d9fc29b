package application

import (
	"context"

	"github.com/wyfcoding/investtrack/internal/strategy/domain"
)

// StrategyDTO 策略查询视图
type StrategyDTO struct {
	Strategy   *domain.Strategy           `json:"strategy"`
	Conditions []domain.StrategyCondition `json:"conditions"`
}

// EvaluateQuery 条件评估查询：对提交的 K 线对做一次临时评估
type EvaluateQuery struct {
	StrategyID  string      `json:"strategy_id"`
	CurrentBar  *domain.Bar `json:"current_bar"`
	PreviousBar *domain.Bar `json:"previous_bar"`
}

// EvaluateResult 条件评估结果
type EvaluateResult struct {
	EntrySignal bool `json:"entry_signal"`
	ExitSignal  bool `json:"exit_signal"`
}

// StrategyQueryService 策略查询服务
type StrategyQueryService struct {
	repo domain.StrategyRepository
}

// NewStrategyQueryService 创建策略查询服务
func NewStrategyQueryService(repo domain.StrategyRepository) *StrategyQueryService {
	return &StrategyQueryService{repo: repo}
}

// GetStrategy 获取策略详情
func (s *StrategyQueryService) GetStrategy(ctx context.Context, strategyID string) (*StrategyDTO, error) {
	strategy, conditions, err := s.repo.FindByID(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	return &StrategyDTO{Strategy: strategy, Conditions: conditions}, nil
}

// ListStrategies 分页列出用户策略
func (s *StrategyQueryService) ListStrategies(ctx context.Context, userID string, offset, limit int) ([]domain.Strategy, int64, error) {
	return s.repo.FindByUserID(ctx, userID, offset, limit)
}

// EvaluateConditions 对策略条件做一次临时评估。
// GRAPHICAL 策略走离散条件；JSON 策略因规则评估器由调用方注入，此处拒绝。
func (s *StrategyQueryService) EvaluateConditions(ctx context.Context, query EvaluateQuery) (*EvaluateResult, error) {
	strategy, conditions, err := s.repo.FindByID(ctx, query.StrategyID)
	if err != nil {
		return nil, err
	}
	evaluator, err := domain.EvaluatorFor(strategy, conditions, nil)
	if err != nil {
		return nil, err
	}
	return &EvaluateResult{
		EntrySignal: evaluator.EvaluateEntry(query.CurrentBar, query.PreviousBar),
		ExitSignal:  evaluator.EvaluateExit(query.CurrentBar, query.PreviousBar),
	}, nil
}
