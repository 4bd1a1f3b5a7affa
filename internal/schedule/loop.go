package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunEvery 启动后立即执行一次，之后每隔 interval 执行，ctx 取消时返回
// 每次执行使用独立的超时 ctx
func RunEvery(ctx context.Context, name string, interval, timeout time.Duration, logger *zap.Logger, job func(context.Context) error) {
	logger.Info("Scheduled loop started",
		zap.String("job", name),
		zap.Duration("interval", interval),
	)

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := job(runCtx); err != nil {
			logger.Error("Scheduled job run failed", zap.String("job", name), zap.Error(err))
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduled loop stopped", zap.String("job", name))
			return
		case <-ticker.C:
			run()
		}
	}
}
