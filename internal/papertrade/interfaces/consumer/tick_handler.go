// Package consumer 订阅行情 tick 与策略事件，驱动模拟盘会话推进与级联清理。
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/investtrack/internal/papertrade/application"
	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
)

// MarketTickTopic 行情调度方发布的 tick 主题
const MarketTickTopic = "marketdata.tick"

// TickMessage tick 消息体
type TickMessage struct {
	PaperTradeID string              `json:"paper_trade_id"`
	CurrentBar   strategydomain.Bar  `json:"current_bar"`
	PreviousBar  *strategydomain.Bar `json:"previous_bar"`
}

// TickHandler 消费行情 tick 与策略删除事件
type TickHandler struct {
	app    *application.PaperTradeService
	logger *slog.Logger
}

// NewTickHandler 创建事件处理器
func NewTickHandler(app *application.PaperTradeService, logger *slog.Logger) *TickHandler {
	return &TickHandler{app: app, logger: logger}
}

// Handle 分发单条消息
func (h *TickHandler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case MarketTickTopic:
		var tick TickMessage
		if err := json.Unmarshal(msg.Value, &tick); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal tick message", "error", err)
			return err
		}
		_, err := h.app.Tick(ctx, application.TickCommand{
			PaperTradeID: tick.PaperTradeID,
			CurrentBar:   tick.CurrentBar,
			PreviousBar:  tick.PreviousBar,
		})
		// 非活跃会话的 tick 直接丢弃，不视为消费失败
		if errors.Is(err, domain.ErrSessionNotActive) || errors.Is(err, domain.ErrPaperTradeNotFound) {
			h.logger.InfoContext(ctx, "tick ignored", "paper_trade_id", tick.PaperTradeID, "reason", err)
			return nil
		}
		return err
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
		h.logger.WarnContext(ctx, "unknown topic", "topic", msg.Topic)
		return nil
	}
}

// Run 消费循环：拉取、处理、提交位点，直到 ctx 取消
func (h *TickHandler) Run(ctx context.Context, reader *kafka.Reader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := h.Handle(ctx, msg); err != nil {
			h.logger.ErrorContext(ctx, "failed to handle message", "topic", msg.Topic, "error", err)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			h.logger.ErrorContext(ctx, "failed to commit offset", "error", err)
		}
	}
}
