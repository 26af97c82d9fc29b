// Package application 回测应用服务：装配策略、行情与引擎，原子持久化结果。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/investtrack/internal/backtest/domain"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/idgen"
)

// StrategyReader 策略读取端口（由策略上下文或其存储提供）
type StrategyReader interface {
	GetStrategy(ctx context.Context, strategyID string) (*strategydomain.Strategy, []strategydomain.StrategyCondition, error)
}

// MarketDataReader 历史指标序列读取端口（行情由外部采集方预先计算并供给）
type MarketDataReader interface {
	GetBars(ctx context.Context, ticker, period string, start, end time.Time) ([]strategydomain.Bar, error)
}

// RunBacktestCommand 运行回测命令
type RunBacktestCommand struct {
	StrategyID string    `json:"strategy_id"`
	UserID     string    `json:"user_id"`
	Ticker     string    `json:"ticker"`
	Period     string    `json:"period"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// BacktestResultDTO 回测结果视图
type BacktestResultDTO struct {
	Backtest *domain.Backtest       `json:"backtest"`
	Trades   []domain.BacktestTrade `json:"trades"`
}

// BacktestApplicationService 回测应用服务
type BacktestApplicationService struct {
	engine     *domain.Engine
	repo       domain.BacktestRepository
	strategies StrategyReader
	marketData MarketDataReader
	rule       strategydomain.RuleEvaluator // JSON 策略的外部规则评估器，可为 nil
	logger     *slog.Logger
}

// NewBacktestApplicationService 创建回测应用服务
func NewBacktestApplicationService(
	engine *domain.Engine,
	repo domain.BacktestRepository,
	strategies StrategyReader,
	marketData MarketDataReader,
	rule strategydomain.RuleEvaluator,
	logger *slog.Logger,
) *BacktestApplicationService {
	return &BacktestApplicationService{
		engine:     engine,
		repo:       repo,
		strategies: strategies,
		marketData: marketData,
		rule:       rule,
		logger:     logger,
	}
}

// RunBacktest 运行一次回测。模拟本身无副作用；
// 结果与流水作为一个原子单元持久化，失败时不留下任何部分记录。
func (s *BacktestApplicationService) RunBacktest(ctx context.Context, cmd RunBacktestCommand) (*BacktestResultDTO, error) {
	strategy, conditions, err := s.strategies.GetStrategy(ctx, cmd.StrategyID)
	if err != nil {
		return nil, err
	}
	if strategy.UserID != cmd.UserID {
		return nil, strategydomain.ErrNotStrategyOwner
	}

	bars, err := s.marketData.GetBars(ctx, cmd.Ticker, cmd.Period, cmd.StartTime, cmd.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}

	backtest, trades, err := s.engine.Run(strategy, conditions, s.rule, cmd.Ticker, cmd.Period, bars)
	if err != nil {
		return nil, err
	}

	backtest.BacktestID = fmt.Sprintf("BT%d", idgen.GenID())
	for i := range trades {
		trades[i].BacktestID = backtest.BacktestID
	}

	if err := s.repo.SaveResult(ctx, backtest, trades); err != nil {
		return nil, fmt.Errorf("failed to persist backtest: %w", err)
	}

	s.logger.InfoContext(ctx, "backtest completed",
		"backtest_id", backtest.BacktestID,
		"strategy_id", cmd.StrategyID,
		"ticker", cmd.Ticker,
		"bars", len(bars),
		"trades", len(trades))
	return &BacktestResultDTO{Backtest: backtest, Trades: trades}, nil
}

// GetBacktest 获取回测详情
func (s *BacktestApplicationService) GetBacktest(ctx context.Context, backtestID string) (*BacktestResultDTO, error) {
	backtest, trades, err := s.repo.FindByID(ctx, backtestID)
	if err != nil {
		return nil, err
	}
	return &BacktestResultDTO{Backtest: backtest, Trades: trades}, nil
}

// ListBacktests 按策略分页列出回测
func (s *BacktestApplicationService) ListBacktests(ctx context.Context, strategyID string, offset, limit int) ([]domain.Backtest, int64, error) {
	return s.repo.FindByStrategyID(ctx, strategyID, offset, limit)
}

// DeleteBacktest 用户删除回测记录
func (s *BacktestApplicationService) DeleteBacktest(ctx context.Context, backtestID, userID string) error {
	backtest, _, err := s.repo.FindByID(ctx, backtestID)
	if err != nil {
		return err
	}
	if backtest.UserID != userID {
		return domain.ErrNotBacktestOwner
	}
	return s.repo.Delete(ctx, backtestID)
}

// CascadeDeleteByStrategy 策略删除事件的级联清理
func (s *BacktestApplicationService) CascadeDeleteByStrategy(ctx context.Context, strategyID string) error {
	if err := s.repo.DeleteByStrategyID(ctx, strategyID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "backtests cascade-deleted", "strategy_id", strategyID)
	return nil
}
