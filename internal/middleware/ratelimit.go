package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/logger"
	"CoachCheck/pkg/response"
)

// RequestLimiter 滑动窗口计数，由 cache.Store 实现
type RequestLimiter interface {
	AllowRequest(ctx context.Context, scope, identifier string, window time.Duration, limit int, now time.Time) (bool, int, error)
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 限流键的作用域，不同接口互不影响
	Scope string
	// 时间窗口
	Window time.Duration
	// 时间窗口内最大请求数
	MaxRequests int
}

// SubmissionRateLimitConfig 打卡提交与排期分配
var SubmissionRateLimitConfig = RateLimitConfig{
	Scope:       "submit",
	Window:      time.Minute,
	MaxRequests: 30,
}

// AuthRateLimitConfig token 刷新，按 IP 计数
var AuthRateLimitConfig = RateLimitConfig{
	Scope:       "auth",
	Window:      time.Minute,
	MaxRequests: 10,
}

// RateLimitMiddleware 已鉴权的请求按身份计数，否则按 IP
// Redis 不可用时放行，不影响主流程
func RateLimitMiddleware(limiter RequestLimiter, cfg RateLimitConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		now := time.Now()
		allowed, count, err := limiter.AllowRequest(ctx, cfg.Scope, rateLimitIdentifier(c), cfg.Window, cfg.MaxRequests, now)
		if err != nil {
			logger.Logger.Warn("Rate limit check failed, allowing request",
				zap.String("scope", cfg.Scope),
				zap.Error(err),
			)
			c.Next(ctx)
			return
		}

		remaining := cfg.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(now.Add(cfg.Window).Unix(), 10))

		if !allowed {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

func rateLimitIdentifier(c *app.RequestContext) string {
	if id, ok := GetIdentity(c); ok {
		return fmt.Sprintf("%s:%s", id.Role, id.PublicID)
	}
	return "ip:" + c.ClientIP()
}
