package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/internal/bootstrap"
	"CoachCheck/internal/queue"
	"CoachCheck/internal/schedule"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := bootstrap.Init(ctx, "scheduler")
	defer rt.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// 调度器发布消息前确保交换机和队列存在
	if err := queue.DeclareTopology(); err != nil {
		logger.Logger.Fatal("Failed to declare queue topology", zap.Error(err))
	}

	s := schedule.NewCheckInScheduler(
		service.Missed(),
		service.Reminder(),
		config.Cfg.ReminderLookahead,
		logger.Named("scheduler"),
	)

	sweepInterval := config.Cfg.MissedSweepInterval
	reminderInterval := config.Cfg.ReminderInterval
	// development 环境缩短间隔，方便本地调试
	if config.Cfg.IsDevelopment() {
		sweepInterval = time.Minute
		reminderInterval = time.Minute
		logger.Logger.Info("Scheduler running in development mode with 1m interval")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		schedule.RunEvery(ctx, "missed_sweep", sweepInterval, 5*time.Minute, logger.Logger, s.RunMissedSweep)
	}()
	go func() {
		defer wg.Done()
		schedule.RunEvery(ctx, "window_reminders", reminderInterval, 5*time.Minute, logger.Logger, s.RunReminderPlanning)
	}()

	wg.Wait()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
