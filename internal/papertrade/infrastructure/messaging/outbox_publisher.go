// Package messaging 模拟盘服务的 Outbox 事件发布
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	"github.com/wyfcoding/pkg/logging"
	"gorm.io/gorm"
)

// OutboxMessage 待投递消息
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventType string    `gorm:"type:varchar(64);index"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string { return "papertrade_outbox_messages" }

// OutboxEventPublisher 实现 domain.EventPublisher
type OutboxEventPublisher struct {
	db     *gorm.DB
	writer *kafka.Writer
}

// NewOutboxEventPublisher 创建事件发布器；writer 为 nil 时消息仅落库不投递
func NewOutboxEventPublisher(db *gorm.DB, writer *kafka.Writer) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db, writer: writer}
}

// Publish 发布领域事件（写入 Outbox 表）
func (p *OutboxEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	message := OutboxMessage{
		ID:        uuid.NewString(),
		EventType: event.EventType(),
		Payload:   string(payload),
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return p.db.WithContext(ctx).Create(&message).Error
}

// ProcessOutboxMessages 批量投递待处理消息到 Kafka
func (p *OutboxEventPublisher) ProcessOutboxMessages(ctx context.Context, batchSize int) error {
	if p.writer == nil {
		return nil
	}

	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at ASC").
		Limit(batchSize).
		Find(&messages).Error; err != nil {
		return err
	}

	for _, message := range messages {
		err := p.writer.WriteMessages(ctx, kafka.Message{
			Topic: message.EventType,
			Key:   []byte(message.ID),
			Value: []byte(message.Payload),
		})
		if err != nil {
			logging.Error(ctx, "failed to deliver outbox message", "message_id", message.ID, "error", err)
			return err
		}
		if err := p.db.WithContext(ctx).Model(&message).Update("status", "sent").Error; err != nil {
			return err
		}
	}
	return nil
}

// CleanupProcessedMessages 清理已投递消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", "sent", before).
		Delete(&OutboxMessage{}).Error
}
