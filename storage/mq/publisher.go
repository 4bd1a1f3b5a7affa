package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"CoachCheck/pkg/logger"
	pkgmq "CoachCheck/pkg/mq"
)

// 发布复用同一个 channel，关闭后下次发布时重建
var (
	publisherCh *amqp.Channel
	pubMutex    sync.Mutex
)

func getPublisherChannel() (*amqp.Channel, error) {
	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisherCh != nil && !publisherCh.IsClosed() {
		return publisherCh, nil
	}

	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	publisherCh = ch

	go func(ch *amqp.Channel) {
		<-ch.NotifyClose(make(chan *amqp.Error, 1))

		pubMutex.Lock()
		if publisherCh == ch {
			publisherCh = nil
		}
		pubMutex.Unlock()

		logger.Logger.Warn("Publisher channel closed, will recreate on next publish",
			zap.String("component", "rabbitmq"),
		)
	}(ch)

	return ch, nil
}

// Publish 发送普通持久化消息
func Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	return publish(ctx, exchange, routingKey, messageID, amqp.Table{}, body)
}

// PublishDelayed 发送延迟消息，依赖 x-delayed-message 交换机（x-delay 单位毫秒）
func PublishDelayed(ctx context.Context, exchange, routingKey, messageID string, delay time.Duration, body interface{}) error {
	if delay < 0 {
		delay = 0
	}
	return publish(ctx, exchange, routingKey, messageID, amqp.Table{"x-delay": delay.Milliseconds()}, body)
}

func publish(ctx context.Context, exchange, routingKey, messageID string, headers amqp.Table, body interface{}) (err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, span := pkgmq.StartPublishSpan(ctx, exchange, routingKey, headers)
	defer func() { pkgmq.EndSpan(ctx, span, "publish", routingKey, err) }()

	ch, err := getPublisherChannel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    messageID,
		Body:         payload,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	return nil
}
