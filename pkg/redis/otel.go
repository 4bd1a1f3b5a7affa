package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook go-redis Hook：每条命令 / pipeline 一个 span，外加命令计数与耗时
type TracingHook struct {
	tracer   trace.Tracer
	attrs    []attribute.KeyValue
	commands metric.Int64Counter
	duration metric.Float64Histogram
}

var _ redis.Hook = (*TracingHook)(nil)

// NewTracingHook 创建追踪 Hook
func NewTracingHook(serviceName string, db int) (*TracingHook, error) {
	meter := otel.Meter(serviceName + ".redis")

	commands, err := meter.Int64Counter("redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	if err != nil {
		return nil, err
	}

	return &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
		},
		commands: commands,
		duration: duration,
	}, nil
}

// DialHook 实现 redis.Hook 接口
func (h *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

// ProcessHook 实现 redis.Hook 接口
func (h *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
			trace.WithAttributes(
				semconv.DBOperation(cmd.Name()),
				attribute.String("redis.key", keyOf(cmd.Args())),
			),
		)
		defer span.End()

		start := time.Now()
		err := next(ctx, cmd)

		status := statusOf(err)
		if status == "error" {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		attrs := metric.WithAttributes(
			attribute.String("redis.command", cmd.Name()),
			attribute.String("redis.status", status),
		)
		h.commands.Add(ctx, 1, attrs)
		h.duration.Record(ctx, time.Since(start).Seconds(), attrs)

		return err
	}
}

// ProcessPipelineHook 实现 redis.Hook 接口
func (h *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
			trace.WithAttributes(attribute.Int("redis.pipeline.count", len(cmds))),
		)
		defer span.End()

		err := next(ctx, cmds)
		if statusOf(err) == "error" {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		h.commands.Add(ctx, int64(len(cmds)), metric.WithAttributes(
			attribute.String("redis.command", "pipeline"),
			attribute.String("redis.status", statusOf(err)),
		))
		return err
	}
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "not_found"
	default:
		return "error"
	}
}

// keyOf 取命令的第一个参数作为键名，不记录值
func keyOf(args []interface{}) string {
	if len(args) < 2 {
		return ""
	}
	key, _ := args[1].(string)
	if len(key) > 100 {
		key = key[:100] + "..."
	}
	return key
}

// InstrumentClient 为客户端挂上追踪 Hook
func InstrumentClient(client *redis.Client, serviceName string, db int) error {
	hook, err := NewTracingHook(serviceName, db)
	if err != nil {
		return err
	}
	client.AddHook(hook)
	return nil
}
