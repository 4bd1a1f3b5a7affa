package otel

// Resource 描述产生 telemetry 数据的实体，附加到所有 span 和 metric 上

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceNamespace = "coachcheck"

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(ServiceAttributes(cfg)...),
		resource.WithAttributes(semconv.TelemetrySDKLanguageGo),
		resource.WithHost(),
		resource.WithOSType(),
	)
}

// ServiceAttributes 服务级属性
func ServiceAttributes(cfg Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
		semconv.ServiceNamespace(serviceNamespace),
	}
}
