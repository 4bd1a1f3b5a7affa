package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/internal/bootstrap"
	"CoachCheck/internal/cache"
	"CoachCheck/internal/queue"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := bootstrap.Init(ctx, "worker")
	defer rt.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := queue.DeclareTopology(); err != nil {
		logger.Logger.Fatal("Failed to declare queue topology", zap.Error(err))
	}

	consumer := queue.NewConsumer(
		service.Notification(),
		cache.Default(),
		logger.Named("consumer"),
		config.Cfg.RabbitMQPrefetch,
	)

	// 阻塞直到 ctx 取消
	consumer.StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}
