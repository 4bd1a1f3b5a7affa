package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"CoachCheck/config"
	"CoachCheck/internal/cache"
	"CoachCheck/internal/handler"
	"CoachCheck/internal/middleware"
	"CoachCheck/pkg/token"
)

// Register 注册全部路由；httpMetrics 为 nil 时不记录 HTTP 指标
func Register(h *server.Hertz, httpMetrics *middleware.HTTPMetrics) {
	limiter := cache.Default()

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware(config.Cfg.CORSAllowedOrigins))
	if httpMetrics != nil {
		h.Use(httpMetrics.Middleware())
	}

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware(limiter, middleware.AuthRateLimitConfig))
	{
		auth.POST("/refresh", handler.RefreshToken)
	}

	// 客户打卡路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware())
	{
		checkIns.GET("/window", handler.GetCurrentWindow)

		client := checkIns.Group("", middleware.RequireRole(token.RoleClient))
		client.GET("", handler.ListCheckIns)
		client.GET("/:occurrence_id/window", handler.GetCheckInWindow)
		client.POST("/:occurrence_id/complete",
			middleware.RateLimitMiddleware(limiter, middleware.SubmissionRateLimitConfig),
			handler.CompleteCheckIn,
		)
	}

	// 教练路由
	coach := v1.Group("/coach")
	coach.Use(middleware.AuthMiddleware(), middleware.RequireRole(token.RoleCoach))
	{
		coach.POST("/assignments", middleware.RateLimitMiddleware(limiter, middleware.SubmissionRateLimitConfig), handler.AssignCheckIns)
		coach.POST("/onboarding", middleware.RateLimitMiddleware(limiter, middleware.SubmissionRateLimitConfig), handler.OnboardClient)
		coach.GET("/overview", handler.GetCoachOverview)
	}
}
