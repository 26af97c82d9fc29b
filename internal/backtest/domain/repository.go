package domain

import "context"

// BacktestRepository 回测仓储接口
type BacktestRepository interface {
	// SaveResult 以单事务原子保存回测及其全部成交流水；
	// 中途失败时整体回滚，不留下部分写入的流水。
	SaveResult(ctx context.Context, backtest *Backtest, trades []BacktestTrade) error
	FindByID(ctx context.Context, backtestID string) (*Backtest, []BacktestTrade, error)
	FindByStrategyID(ctx context.Context, strategyID string, offset, limit int) ([]Backtest, int64, error)
	Delete(ctx context.Context, backtestID string) error
	// DeleteByStrategyID 策略删除事件触发的级联清理
	DeleteByStrategyID(ctx context.Context, strategyID string) error
}
