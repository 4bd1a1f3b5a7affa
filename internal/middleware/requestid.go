package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware 沿用调用方传入的请求 ID，没有则生成一个并回写到响应头
func RequestIDMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		requestID := string(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next(ctx)
	}
}

// GetRequestID 当前请求的 ID，未经过 RequestIDMiddleware 时为空
func GetRequestID(c *app.RequestContext) string {
	return c.GetString(requestIDKey)
}
