package bootstrap

// 三个进程（server / worker / scheduler）共用的启动流程

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/internal/cache"
	"CoachCheck/internal/cadence"
	"CoachCheck/internal/queue"
	"CoachCheck/internal/repository"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/logger"
	"CoachCheck/pkg/metrics"
	"CoachCheck/pkg/otel"
	"CoachCheck/pkg/snowflake"
	"CoachCheck/storage"
	"CoachCheck/storage/database"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

// Runtime 启动后各进程需要的共享对象
type Runtime struct {
	Evaluator *cadence.Evaluator
	Location  *time.Location
	shutdown  otel.ShutdownFunc
}

// Init 依次初始化配置、日志、链路追踪、ID 生成器、存储和 service 层
// 任何一步失败都直接退出进程
func Init(ctx context.Context, component string) *Runtime {
	config.Init()
	logger.Init()

	shutdown, err := otel.Init(ctx, otel.ConfigFromEnv(Version))
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	if err := metrics.Init(); err != nil {
		logger.Logger.Warn("Failed to register check-in metrics", zap.Error(err))
	}

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.String("component", component), zap.Error(err))
	}

	rt, err := newRuntime(shutdown)
	if err != nil {
		logger.Logger.Fatal("Invalid check-in configuration", zap.Error(err))
	}

	service.Init(service.Deps{
		Repo:      repository.New(database.DB()),
		Evaluator: rt.Evaluator,
		Location:  rt.Location,
		Cache:     cache.Default(),
		Publisher: queue.NewProducer(snowflake.Default()),
		IDs:       snowflake.Default(),
		Metrics:   metrics.Get(),
		Logger:    logger.Named(component),
	})

	logger.Logger.Info("Service starting",
		zap.String("component", component),
		zap.String("service", config.Cfg.ServiceName),
		zap.String("version", Version),
		zap.String("environment", config.Cfg.Environment),
	)

	return rt
}

func newRuntime(shutdown otel.ShutdownFunc) (*Runtime, error) {
	ev, err := cadence.NewEvaluator(config.Cfg.CadenceConfig())
	if err != nil {
		return nil, err
	}

	loc, err := config.Cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", config.Cfg.CheckInTimezone, err)
	}

	return &Runtime{Evaluator: ev, Location: loc, shutdown: shutdown}, nil
}

// Close 关闭存储连接并刷出遥测数据
func (r *Runtime) Close() {
	storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.shutdown(ctx); err != nil {
		logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Sync()
}
