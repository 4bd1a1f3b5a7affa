package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/internal/bootstrap"
	"CoachCheck/internal/middleware"
	"CoachCheck/internal/router"
	"CoachCheck/pkg/logger"
	"CoachCheck/pkg/token"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := bootstrap.Init(ctx, "server")
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

	// token 在中间件前初始化，middleware 依赖 token
	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	httpMetrics, err := middleware.NewHTTPMetrics(otel.Meter("coachcheck.http"))
	if err != nil {
		logger.Logger.Warn("Failed to register HTTP metrics", zap.Error(err))
	}

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	opts := []hertzconfig.Option{server.WithHostPorts(addr)}
	var tracingMiddleware app.HandlerFunc
	if config.Cfg.OTelEnabled {
		tracer, mw := middleware.NewServerTracerConfig()
		opts = append(opts, tracer)
		tracingMiddleware = mw
	}

	h := server.Default(opts...)
	if tracingMiddleware != nil {
		h.Use(tracingMiddleware)
	}

	router.Register(h, httpMetrics)

	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
