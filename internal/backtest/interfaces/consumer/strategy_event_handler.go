// Package consumer 订阅策略上下文的领域事件，执行归属边的级联清理。
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/investtrack/internal/backtest/application"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
)

// StrategyEventHandler 策略事件处理器
type StrategyEventHandler struct {
	app    *application.BacktestApplicationService
	logger *slog.Logger
}

// NewStrategyEventHandler 创建事件处理器
func NewStrategyEventHandler(app *application.BacktestApplicationService, logger *slog.Logger) *StrategyEventHandler {
	return &StrategyEventHandler{app: app, logger: logger}
}

// Handle 分发单条事件消息
func (h *StrategyEventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case strategydomain.StrategyDeletedEventType:
		var payload struct {
			StrategyID string `json:"strategy_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal strategy deleted event", "error", err)
			return err
		}
		return h.app.CascadeDeleteByStrategy(ctx, payload.StrategyID)
	default:
		h.logger.WarnContext(ctx, "unknown strategy event topic", "topic", msg.Topic)
		return nil
	}
}

// Run 消费循环：拉取、处理、提交位点，直到 ctx 取消
func (h *StrategyEventHandler) Run(ctx context.Context, reader *kafka.Reader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := h.Handle(ctx, msg); err != nil {
			h.logger.ErrorContext(ctx, "failed to handle strategy event", "topic", msg.Topic, "error", err)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			h.logger.ErrorContext(ctx, "failed to commit offset", "error", err)
		}
	}
}
