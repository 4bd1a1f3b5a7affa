package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/model"
	"CoachCheck/pkg/logger"
	"CoachCheck/pkg/snowflake"
	"CoachCheck/storage/mq"
)

// Producer 发布打卡相关消息
type Producer struct {
	ids snowflake.IDGenerator
}

func NewProducer(ids snowflake.IDGenerator) *Producer {
	return &Producer{ids: ids}
}

// PublishWindowReminder 发布窗口开启提醒（延迟到窗口开启时投递）
func (p *Producer) PublishWindowReminder(ctx context.Context, msg model.WindowOpenReminderMessage) error {
	if msg.MessageID == "" {
		id, err := p.ids.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ci_reminder_%d", id)
	}

	delay := time.Duration(msg.DelaySeconds) * time.Second

	if err := mq.PublishDelayed(ctx, DelayedExchange, windowReminderRoutingKey, msg.MessageID, delay, msg); err != nil {
		logger.Logger.Error("Failed to publish window reminder message",
			zap.String("occurrence_id", msg.OccurrenceID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published window reminder message",
		zap.String("message_id", msg.MessageID),
		zap.String("occurrence_id", msg.OccurrenceID),
		zap.Time("opens_at", msg.OpensAt),
		zap.Duration("delay", delay),
	)

	return nil
}

// PublishOccurrenceMissed 发布漏打事件
func (p *Producer) PublishOccurrenceMissed(ctx context.Context, msg model.OccurrenceMissedMessage) error {
	if msg.MessageID == "" {
		id, err := p.ids.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ci_missed_%d", id)
	}

	if err := mq.Publish(ctx, EventsExchange, occurrenceMissedRoutingKey, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish occurrence missed message",
			zap.String("occurrence_id", msg.OccurrenceID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published occurrence missed message",
		zap.String("message_id", msg.MessageID),
		zap.String("occurrence_id", msg.OccurrenceID),
		zap.Int64("client_id", msg.ClientID),
	)

	return nil
}
