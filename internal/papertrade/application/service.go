// Package application 模拟盘服务应用层。
// 所有会话变更都经过 per-session 互斥锁，保证同一会话的 tick 与
// 控制命令（暂停/恢复/终止）串行执行。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
)

// StrategyReader 策略读取端口（由共享存储适配器实现）
type StrategyReader interface {
	GetStrategy(ctx context.Context, strategyID string) (*strategydomain.Strategy, []strategydomain.StrategyCondition, error)
}

// StatusCache 状态快照缓存端口
type StatusCache interface {
	GetSnapshot(ctx context.Context, paperTradeID string) (*domain.StatusSnapshot, error)
	SetSnapshot(ctx context.Context, snapshot *domain.StatusSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, paperTradeID string) error
}

// StartPaperTradeCommand 启动模拟盘命令
type StartPaperTradeCommand struct {
	StrategyID     string  `json:"strategy_id" binding:"required"`
	UserID         string  `json:"user_id" binding:"required"`
	Ticker         string  `json:"ticker" binding:"required"`
	InitialCapital float64 `json:"initial_capital" binding:"required,gt=0"`
}

// TickCommand 单次 tick 命令；由调度方携带最新与前一根 K 线
type TickCommand struct {
	PaperTradeID string              `json:"paper_trade_id" binding:"required"`
	CurrentBar   strategydomain.Bar  `json:"current_bar" binding:"required"`
	PreviousBar  *strategydomain.Bar `json:"previous_bar"`
}

// PaperTradeService 模拟盘应用服务
type PaperTradeService struct {
	repo       domain.PaperTradeRepository
	strategies StrategyReader
	publisher  domain.EventPublisher
	cache      StatusCache
	rule       strategydomain.RuleEvaluator
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewPaperTradeService 创建模拟盘应用服务；rule 为 JSON 策略的规则评估器，可为 nil
func NewPaperTradeService(
	repo domain.PaperTradeRepository,
	strategies StrategyReader,
	publisher domain.EventPublisher,
	cache StatusCache,
	rule strategydomain.RuleEvaluator,
	logger *slog.Logger,
) *PaperTradeService {
	return &PaperTradeService{
		repo:       repo,
		strategies: strategies,
		publisher:  publisher,
		cache:      cache,
		rule:       rule,
		logger:     logger,
		sessions:   make(map[string]*sync.Mutex),
	}
}

func (s *PaperTradeService) sessionLock(paperTradeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessions[paperTradeID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[paperTradeID] = lock
	}
	return lock
}

// Start 校验策略归属后启动新会话
func (s *PaperTradeService) Start(ctx context.Context, cmd StartPaperTradeCommand) (*domain.PaperTrade, error) {
	strategy, _, err := s.strategies.GetStrategy(ctx, cmd.StrategyID)
	if err != nil {
		return nil, err
	}
	if strategy.UserID != cmd.UserID {
		return nil, strategydomain.ErrNotStrategyOwner
	}

	pt := domain.NewPaperTrade(
		fmt.Sprintf("PT%d", idgen.GenID()),
		cmd.StrategyID,
		cmd.UserID,
		cmd.Ticker,
		decimal.NewFromFloat(cmd.InitialCapital),
		strategy.PositionSizePct,
	)
	if err := s.repo.Save(ctx, pt); err != nil {
		return nil, fmt.Errorf("failed to save paper trade: %w", err)
	}

	s.publishEvents(ctx, pt)
	s.logger.InfoContext(ctx, "paper trade started",
		"paper_trade_id", pt.PaperTradeID, "strategy_id", pt.StrategyID, "ticker", pt.Ticker)
	return pt, nil
}

// Tick 推进一次会话评估；非 ACTIVE 会话原样返回并报错
func (s *PaperTradeService) Tick(ctx context.Context, cmd TickCommand) (*domain.PaperTrade, error) {
	lock := s.sessionLock(cmd.PaperTradeID)
	lock.Lock()
	defer lock.Unlock()

	pt, err := s.repo.FindByID(ctx, cmd.PaperTradeID)
	if err != nil {
		return nil, err
	}
	if pt.Status != domain.StatusActive {
		return pt, domain.ErrSessionNotActive
	}

	strategy, conditions, err := s.strategies.GetStrategy(ctx, pt.StrategyID)
	if err != nil {
		return nil, err
	}
	evaluator, err := strategydomain.EvaluatorFor(strategy, conditions, s.rule)
	if err != nil {
		return nil, err
	}

	changed, err := pt.Tick(&cmd.CurrentBar, cmd.PreviousBar, evaluator)
	if err != nil {
		return pt, err
	}

	if err := s.repo.Save(ctx, pt); err != nil {
		return nil, fmt.Errorf("failed to save paper trade tick: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, pt.PaperTradeID); err != nil {
			logging.Error(ctx, "failed to invalidate status cache", "paper_trade_id", pt.PaperTradeID, "error", err)
		}
	}
	s.publishEvents(ctx, pt)

	if changed {
		s.logger.InfoContext(ctx, "paper trade position changed",
			"paper_trade_id", pt.PaperTradeID, "bar_date", cmd.CurrentBar.Date)
	}
	return pt, nil
}

// Pause 暂停会话
func (s *PaperTradeService) Pause(ctx context.Context, paperTradeID, userID string) (*domain.PaperTrade, error) {
	return s.transition(ctx, paperTradeID, userID, (*domain.PaperTrade).Pause)
}

// Resume 恢复会话
func (s *PaperTradeService) Resume(ctx context.Context, paperTradeID, userID string) (*domain.PaperTrade, error) {
	return s.transition(ctx, paperTradeID, userID, (*domain.PaperTrade).Resume)
}

// Stop 终止会话；未平仓位保持未平
func (s *PaperTradeService) Stop(ctx context.Context, paperTradeID, userID string) (*domain.PaperTrade, error) {
	return s.transition(ctx, paperTradeID, userID, (*domain.PaperTrade).Stop)
}

func (s *PaperTradeService) transition(ctx context.Context, paperTradeID, userID string, apply func(*domain.PaperTrade) error) (*domain.PaperTrade, error) {
	lock := s.sessionLock(paperTradeID)
	lock.Lock()
	defer lock.Unlock()

	pt, err := s.repo.FindByID(ctx, paperTradeID)
	if err != nil {
		return nil, err
	}
	if pt.UserID != userID {
		return nil, domain.ErrNotPaperTradeOwner
	}
	if err := apply(pt); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, pt); err != nil {
		return nil, fmt.Errorf("failed to save paper trade state: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, pt.PaperTradeID); err != nil {
			logging.Error(ctx, "failed to invalidate status cache", "paper_trade_id", pt.PaperTradeID, "error", err)
		}
	}
	s.publishEvents(ctx, pt)
	return pt, nil
}

// GetStatus 读取会话状态快照；优先命中缓存
func (s *PaperTradeService) GetStatus(ctx context.Context, paperTradeID string) (*domain.StatusSnapshot, error) {
	if s.cache != nil {
		if snapshot, err := s.cache.GetSnapshot(ctx, paperTradeID); err == nil && snapshot != nil {
			return snapshot, nil
		}
	}

	pt, err := s.repo.FindByID(ctx, paperTradeID)
	if err != nil {
		return nil, err
	}
	snapshot := pt.Snapshot()

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, &snapshot, 30*time.Second); err != nil {
			logging.Error(ctx, "failed to cache status snapshot", "paper_trade_id", paperTradeID, "error", err)
		}
	}
	return &snapshot, nil
}

// GetPaperTrade 读取会话详情（含全部持仓）
func (s *PaperTradeService) GetPaperTrade(ctx context.Context, paperTradeID string) (*domain.PaperTrade, error) {
	return s.repo.FindByID(ctx, paperTradeID)
}

// ListPaperTrades 按用户分页列出会话
func (s *PaperTradeService) ListPaperTrades(ctx context.Context, userID string, offset, limit int) ([]domain.PaperTrade, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.FindByUserID(ctx, userID, offset, limit)
}

// CascadeDeleteByStrategy 策略删除后的级联清理
func (s *PaperTradeService) CascadeDeleteByStrategy(ctx context.Context, strategyID string) error {
	if err := s.repo.DeleteByStrategyID(ctx, strategyID); err != nil {
		return fmt.Errorf("failed to cascade delete paper trades: %w", err)
	}
	s.logger.InfoContext(ctx, "paper trades removed for deleted strategy", "strategy_id", strategyID)
	return nil
}

func (s *PaperTradeService) publishEvents(ctx context.Context, pt *domain.PaperTrade) {
	for _, event := range pt.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			logging.Error(ctx, "failed to publish domain event",
				"event_type", event.EventType(), "paper_trade_id", pt.PaperTradeID, "error", err)
		}
	}
	pt.ClearDomainEvents()
}
