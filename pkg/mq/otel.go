package mq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "coachcheck.rabbitmq"

var (
	instrumentsOnce sync.Once
	messagesTotal   metric.Int64Counter
	messageErrors   metric.Int64Counter
)

func instruments() {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentation)
		messagesTotal, _ = meter.Int64Counter("mq.messages.total",
			metric.WithDescription("Total number of RabbitMQ messages"),
			metric.WithUnit("{message}"),
		)
		messageErrors, _ = meter.Int64Counter("mq.messages.errors",
			metric.WithDescription("Number of RabbitMQ publish/handle errors"),
			metric.WithUnit("{error}"),
		)
	})
}

// StartPublishSpan 开始发布 span，并把追踪上下文注入消息头
func StartPublishSpan(ctx context.Context, exchange, routingKey string, headers amqp.Table) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(instrumentation).Start(ctx, "publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			attribute.String("messaging.rabbitmq.exchange", exchange),
		),
	)
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(headers))
	return ctx, span
}

// StartConsumeSpan 从消息头恢复上游上下文并开始处理 span
func StartConsumeSpan(ctx context.Context, queue string, d amqp.Delivery) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(d.Headers))
	return otel.Tracer(instrumentation).Start(ctx, "process "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingMessageID(d.MessageId),
			attribute.String("messaging.rabbitmq.queue", queue),
		),
	)
}

// EndSpan 结束 span 并记录次数
func EndSpan(ctx context.Context, span trace.Span, operation, destination string, err error) {
	instruments()

	attrs := metric.WithAttributes(
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.destination", destination),
	)
	messagesTotal.Add(ctx, 1, attrs)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		messageErrors.Add(ctx, 1, attrs)
	}
	span.End()
}

// HeaderCarrier 实现 propagation.TextMapCarrier 接口
type HeaderCarrier amqp.Table

func (c HeaderCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
