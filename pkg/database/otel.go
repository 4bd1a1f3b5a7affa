package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"
)

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName   string
	EnableMetrics bool
	MaxSQLLength  int
}

// DefaultPluginConfig 默认插件配置
func DefaultPluginConfig(serviceName string) PluginConfig {
	return PluginConfig{
		ServiceName:   serviceName,
		EnableMetrics: true,
		MaxSQLLength:  500,
	}
}

// OTELPlugin GORM OpenTelemetry 插件：每条语句一个 span，外加次数/耗时指标
type OTELPlugin struct {
	tracer trace.Tracer
	config PluginConfig

	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTELPlugin 创建插件实例
func NewOTELPlugin(cfg PluginConfig) (*OTELPlugin, error) {
	p := &OTELPlugin{
		tracer: otel.Tracer(cfg.ServiceName + ".gorm"),
		config: cfg,
	}
	if !cfg.EnableMetrics {
		return p, nil
	}

	meter := otel.Meter(cfg.ServiceName + ".gorm")
	var err error
	if p.queries, err = meter.Int64Counter("db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, err
	}
	if p.duration, err = meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	return errors.Join(
		cb.Query().Before("gorm:query").Register("otel:before_query", p.before),
		cb.Query().After("gorm:query").Register("otel:after_query", p.after),
		cb.Create().Before("gorm:create").Register("otel:before_create", p.before),
		cb.Create().After("gorm:create").Register("otel:after_create", p.after),
		cb.Update().Before("gorm:update").Register("otel:before_update", p.before),
		cb.Update().After("gorm:update").Register("otel:after_update", p.after),
		cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before),
		cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after),
		cb.Row().Before("gorm:row").Register("otel:before_row", p.before),
		cb.Row().After("gorm:row").Register("otel:after_row", p.after),
		cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before),
		cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after),
	)
}

func (p *OTELPlugin) before(db *gorm.DB) {
	ctx, span := p.tracer.Start(db.Statement.Context, "db."+tableOf(db),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.DBSystemPostgreSQL),
	)

	db.InstanceSet(startKey, time.Now())
	db.InstanceSet(spanKey, span)
	db.Statement.Context = ctx
}

func (p *OTELPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	operation := operationOf(db.Statement.SQL.String())
	span.SetName("db." + operation + " " + tableOf(db))

	sql := db.Statement.SQL.String()
	if p.config.MaxSQLLength > 0 && len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	span.SetAttributes(
		semconv.DBStatement(sql),
		semconv.DBOperation(operation),
		attribute.String("db.table", tableOf(db)),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		status = "not_found"
		span.SetStatus(codes.Ok, "record not found")
	default:
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if !p.config.EnableMetrics {
		return
	}

	var elapsed float64
	if s, ok := db.InstanceGet(startKey); ok {
		if start, ok := s.(time.Time); ok {
			elapsed = time.Since(start).Seconds()
		}
	}
	p.record(db.Statement.Context, operation, status, elapsed)
}

func (p *OTELPlugin) record(ctx context.Context, operation, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	p.queries.Add(ctx, 1, attrs)
	p.duration.Record(ctx, seconds, attrs)
}

func tableOf(db *gorm.DB) string {
	if db.Statement.Table != "" {
		return db.Statement.Table
	}
	return "unknown"
}

func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return strings.ToLower(op)
		}
	}
	return "query"
}

// WithOTELPlugin 为 GORM 添加 OpenTelemetry 插件
func WithOTELPlugin(db *gorm.DB, serviceName string) error {
	plugin, err := NewOTELPlugin(DefaultPluginConfig(serviceName))
	if err != nil {
		return err
	}
	return db.Use(plugin)
}
