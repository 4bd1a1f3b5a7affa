package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMetrics HTTP 请求指标，span 由 hertz tracing 中间件负责
type HTTPMetrics struct {
	requestTotal   metric.Int64Counter
	duration       metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics 在给定 meter 上注册指标
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.duration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	); err != nil {
		return nil, err
	}

	if m.activeRequests, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// toValidUTF8 清洗用户可控字符串，防止非法 UTF-8 导致导出失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// Middleware 记录请求指标，并把调用方身份与请求 ID 写到当前 span
// 路由标签使用注册时的模板（/v1/check-ins/:occurrence_id），避免高基数
func (m *HTTPMetrics) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		startTime := time.Now()
		m.activeRequests.Add(ctx, 1)
		defer m.activeRequests.Add(ctx, -1)

		c.Next(ctx)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		statusCode := c.Response.StatusCode()

		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			if id, ok := GetIdentity(c); ok {
				span.SetAttributes(
					attribute.String("enduser.id", toValidUTF8(id.PublicID)),
					attribute.String("enduser.role", string(id.Role)),
				)
			}
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("http.request_id", toValidUTF8(requestID)))
			}
		}

		labels := metric.WithAttributes(
			attribute.String("http.method", toValidUTF8(string(c.Method()))),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", statusCode),
		)
		m.requestTotal.Add(ctx, 1, labels)
		m.duration.Record(ctx, time.Since(startTime).Seconds(), labels)
	}
}

// NewServerTracerConfig 创建 Hertz Server 的追踪配置
// 返回用于初始化 Hertz server 的配置选项和追踪中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
