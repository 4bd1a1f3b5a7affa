package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/pkg/logger"
	"CoachCheck/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 严重错误回调，可用于告警
	OnSevereError func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte)
	// 生产环境不向客户端暴露 panic 内容
	IsProduction bool
	// 是否记录堆栈
	EnableStackTrace bool
}

// NewRecoverConfig 按当前环境生成配置
func NewRecoverConfig() RecoverConfig {
	return RecoverConfig{
		IsProduction:     config.Cfg.IsProduction(),
		EnableStackTrace: true,
	}
}

// RecoverMiddleware 使用当前环境配置的 recover 中间件
func RecoverMiddleware() app.HandlerFunc {
	return RecoverMiddlewareWithConfig(NewRecoverConfig())
}

// RecoverMiddlewareWithConfig 带配置的 recover 中间件
func RecoverMiddlewareWithConfig(cfg RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, cfg)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, cfg RecoverConfig) {
	var stack []byte
	if cfg.EnableStackTrace {
		stack = debug.Stack()
	}

	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", GetRequestID(c)),
	}
	if id, ok := GetIdentity(c); ok {
		fields = append(fields, zap.String("caller_id", id.PublicID), zap.String("role", string(id.Role)))
	}
	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}
	logger.Logger.Error("[PANIC RECOVERED]", fields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(fmt.Errorf("panic: %v", err), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "panic recovered")
	}

	if isSeverePanic(err) && cfg.OnSevereError != nil {
		cfg.OnSevereError(ctx, c, err, stack)
	}

	details := map[string]interface{}{}
	if !cfg.IsProduction {
		details["panic"] = fmt.Sprintf("%v", err)
	}
	response.ErrorWithDetails(ctx, c, fmt.Errorf("panic: %v", err), details)
	c.Abort()
}

// isSeverePanic 运行时级别的错误，通常意味着进程状态已不可信
func isSeverePanic(err interface{}) bool {
	errStr := fmt.Sprintf("%v", err)

	for _, pattern := range []string{
		"runtime: out of memory",
		"fatal error:",
		"concurrent map writes",
		"concurrent map read and map write",
		"all goroutines are asleep - deadlock!",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
