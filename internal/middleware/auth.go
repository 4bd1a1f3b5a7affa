package middleware

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/response"
	"CoachCheck/pkg/token"
)

// identityContextKey 鉴权通过后 token.Identity 在 RequestContext 中的键
const identityContextKey = "identity"

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	// 与 token 包共用同一套签名配置
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	authMiddleware = &jwt.HertzJWTMiddleware{
		Realm:       "CoachCheck API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: identityContextKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			id, err := token.IdentityFromClaims(jwt.ExtractClaims(ctx, c))
			if err != nil {
				return nil
			}
			return id
		},

		// 没有合法身份（例如 role 缺失）的 token 一律拒绝
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			_, ok := data.(token.Identity)
			return ok
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			response.Error(ctx, c, fmt.Errorf("%w: %s", errors.Unauthorized, message))
		},

		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
	}

	return authMiddleware.MiddlewareInit()
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// RequireRole 只允许指定角色访问，需放在 AuthMiddleware 之后
func RequireRole(role token.Role) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id, ok := GetIdentity(c)
		if !ok {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}
		if id.Role != role {
			response.Error(ctx, c, fmt.Errorf("%w: %s role required", errors.Forbidden, role))
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// GetIdentity 从请求上下文中获取调用方身份
func GetIdentity(c *app.RequestContext) (token.Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return token.Identity{}, false
	}

	id, ok := v.(token.Identity)
	return id, ok
}
