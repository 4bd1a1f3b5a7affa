package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"CoachCheck/pkg/logger"
	"CoachCheck/storage/database"
	"CoachCheck/storage/redis"
)

const healthCheckTimeout = 2 * time.Second

// Healthz 检查数据库与 Redis 连通性
// GET /healthz
func Healthz(ctx context.Context, c *app.RequestContext) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"database": pingDatabase(ctx),
		"redis":    pingRedis(ctx),
	}

	status := http.StatusOK
	for name, result := range checks {
		if result != "ok" {
			status = http.StatusServiceUnavailable
			logger.Logger.Warn("Health check failed", zap.String("component", name), zap.String("result", result))
		}
	}

	c.JSON(status, map[string]interface{}{"checks": checks})
}

func pingDatabase(ctx context.Context) string {
	db := database.DB()
	if db == nil {
		return "not initialized"
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func pingRedis(ctx context.Context) string {
	if err := redis.Client().Ping(ctx).Err(); err != nil {
		return err.Error()
	}
	return "ok"
}
