package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	pkgerrors "CoachCheck/pkg/errors"
	"CoachCheck/pkg/logger"
	pkgmq "CoachCheck/pkg/mq"
)

// MessageHandler 处理一条消息体；返回 *SkipMessageError 表示直接 ack
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 阻塞消费直到 ctx 取消或通道关闭
// 处理失败的消息首次重新入队，再次失败则丢弃（由死信或人工处理）
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return errors.New("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("set QoS: %w", err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, opts.Queue, opts.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel for %s closed", opts.Queue)
			}
			handle(ctx, opts, d)
		}
	}
}

func handle(ctx context.Context, opts ConsumeOptions, d amqp.Delivery) {
	msgCtx, span := pkgmq.StartConsumeSpan(ctx, opts.Queue, d)
	err := opts.Handler(msgCtx, d.Body)
	pkgmq.EndSpan(msgCtx, span, "process", opts.Queue, err)

	var skip *pkgerrors.SkipMessageError
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.As(err, &skip):
		logger.Logger.Info("Skipping message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", d.MessageId),
			zap.String("reason", skip.Reason),
		)
		_ = d.Ack(false)
	default:
		logger.Logger.Error("Failed to process message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", d.MessageId),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		_ = d.Nack(false, !d.Redelivered)
	}
}
