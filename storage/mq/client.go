package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/pkg/logger"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// Init 建立到 RabbitMQ 的长连接，通道按需在 publisher / consumer 中创建
func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			connErr = fmt.Errorf("dial rabbitmq: %w", connErr)
			return
		}

		go func() {
			if amqpErr := <-conn.NotifyClose(make(chan *amqp.Error, 1)); amqpErr != nil {
				logger.Logger.Error("RabbitMQ connection closed",
					zap.String("component", "rabbitmq"),
					zap.String("reason", amqpErr.Reason),
				)
			}
		}()

		logger.Logger.Info("RabbitMQ connected", zap.String("host", config.Cfg.RabbitMQAddr))
	})

	return connErr
}

// Connection 返回共享连接，未初始化时为 nil
func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil {
		_ = publisherCh.Close()
		publisherCh = nil
	}
	pubMutex.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// Exchange 交换机声明
type Exchange struct {
	Name    string
	Kind    string
	Delayed bool // 使用 rabbitmq_delayed_message_exchange 插件，Kind 作为 x-delayed-type
}

// Binding 队列及其绑定
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology 一组交换机与队列
type Topology struct {
	Exchanges []Exchange
	Bindings  []Binding
}

// Declare 幂等地声明拓扑
func Declare(t Topology) error {
	if conn == nil {
		return errors.New("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	for _, ex := range t.Exchanges {
		kind, args := ex.Kind, amqp.Table(nil)
		if ex.Delayed {
			kind, args = "x-delayed-message", amqp.Table{"x-delayed-type": ex.Kind}
		}
		if err := ch.ExchangeDeclare(ex.Name, kind, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
		}
	}

	for _, b := range t.Bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.Queue, err)
		}
	}

	return nil
}
