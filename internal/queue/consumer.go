package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/model"
	"CoachCheck/pkg/errors"
	"CoachCheck/storage/mq"
)

// NotificationService 消息最终交给通知服务投递（邮件 / 推送在服务之外）
type NotificationService interface {
	NotifyWindowOpen(ctx context.Context, msg model.WindowOpenReminderMessage) error
	NotifyOccurrenceMissed(ctx context.Context, msg model.OccurrenceMissedMessage) error
}

// Deduplicator 消息幂等标记，由 cache.Store 实现
type Deduplicator interface {
	TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error
	UnmarkMessageProcessing(ctx context.Context, messageID string) error
}

const (
	processingTTL = 24 * time.Hour
	processedTTL  = 48 * time.Hour
)

// Consumer worker 进程中的所有消费者
type Consumer struct {
	notifier NotificationService
	dedup    Deduplicator
	logger   *zap.Logger
	prefetch int
}

func NewConsumer(notifier NotificationService, dedup Deduplicator, logger *zap.Logger, prefetch int) *Consumer {
	return &Consumer{notifier: notifier, dedup: dedup, logger: logger, prefetch: prefetch}
}

// StartWindowReminderConsumer 启动窗口开启提醒消费者
func (c *Consumer) StartWindowReminderConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         WindowReminderQueue,
		ConsumerTag:   "window_reminder_consumer",
		PrefetchCount: c.prefetch,
		Handler:       c.handleWindowReminder,
	})
}

// StartOccurrenceMissedConsumer 启动漏打通知消费者
func (c *Consumer) StartOccurrenceMissedConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         OccurrenceMissedQueue,
		ConsumerTag:   "occurrence_missed_consumer",
		PrefetchCount: c.prefetch,
		Handler:       c.handleOccurrenceMissed,
	})
}

func (c *Consumer) handleWindowReminder(ctx context.Context, body []byte) error {
	var msg model.WindowOpenReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed window reminder message: %v", err)}
	}

	return c.once(ctx, msg.MessageID, func() error {
		c.logger.Info("Processing window reminder",
			zap.String("message_id", msg.MessageID),
			zap.String("occurrence_id", msg.OccurrenceID),
			zap.Time("opens_at", msg.OpensAt),
		)
		return c.notifier.NotifyWindowOpen(ctx, msg)
	})
}

func (c *Consumer) handleOccurrenceMissed(ctx context.Context, body []byte) error {
	var msg model.OccurrenceMissedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed occurrence missed message: %v", err)}
	}

	return c.once(ctx, msg.MessageID, func() error {
		c.logger.Info("Processing occurrence missed",
			zap.String("message_id", msg.MessageID),
			zap.String("occurrence_id", msg.OccurrenceID),
			zap.Int64("client_id", msg.ClientID),
		)
		return c.notifier.NotifyOccurrenceMissed(ctx, msg)
	})
}

// once 使用 SETNX 标记保证同一条消息只被成功处理一次
// 标记失败时继续处理（可能重复通知，但不会丢）
func (c *Consumer) once(ctx context.Context, messageID string, process func() error) error {
	if messageID == "" {
		return process()
	}

	first, err := c.dedup.TryMarkMessageProcessing(ctx, messageID, processingTTL)
	if err != nil {
		c.logger.Warn("Failed to check message processed status",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	} else if !first {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", messageID)}
	}

	if err := process(); err != nil {
		if unmarkErr := c.dedup.UnmarkMessageProcessing(ctx, messageID); unmarkErr != nil {
			c.logger.Warn("Failed to unmark message", zap.String("message_id", messageID), zap.Error(unmarkErr))
		}
		return err
	}

	if err := c.dedup.MarkMessageProcessed(ctx, messageID, processedTTL); err != nil {
		c.logger.Warn("Failed to mark message as processed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}

	return nil
}

// StartAllConsumers 启动所有消费者，阻塞直到全部退出
func (c *Consumer) StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"window_reminder", c.StartWindowReminderConsumer},
		{"occurrence_missed", c.StartOccurrenceMissedConsumer},
	}

	for _, item := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			c.logger.Info("Starting consumer", zap.String("consumer_name", name))

			if err := consumer(ctx); err != nil {
				c.logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(item.name, item.consumer)
	}

	wg.Wait()

	c.logger.Info("All consumers stopped")
}
