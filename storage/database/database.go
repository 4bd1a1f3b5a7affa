package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"CoachCheck/config"
	pkgdb "CoachCheck/pkg/database"
	"CoachCheck/pkg/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

func Init() error {
	dbOnce.Do(func() {
		gormCfg := &gorm.Config{
			Logger:                                   newLogger(),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			SkipDefaultTransaction:                   true,
			TranslateError:                           true,
			NowFunc:                                  func() time.Time { return time.Now().UTC() },
		}

		gormDB, err := gorm.Open(postgres.Open(config.Cfg.GetDSN()), gormCfg)
		if err != nil {
			dbErr = fmt.Errorf("open database: %w", err)
			return
		}

		if config.Cfg.OTelEnabled {
			if err := pkgdb.WithOTELPlugin(gormDB, config.Cfg.ServiceName); err != nil {
				logger.Logger.Warn("Failed to install gorm otel plugin", zap.Error(err))
			}
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			dbErr = fmt.Errorf("get sql.DB from gorm: %w", err)
			return
		}
		configureConnectionPool(sqlDB)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbErr = fmt.Errorf("ping database: %w", err)
			return
		}

		db = gormDB
		if err := Migrate(); err != nil {
			dbErr = fmt.Errorf("run database migration: %w", err)
			return
		}

		logger.Logger.Info("Database initialized",
			zap.String("host", config.Cfg.PostgreSQLHost),
			zap.String("database", config.Cfg.PostgreSQLDatabase),
		)
	})

	return dbErr
}

// DB 导出给 repository 层
func DB() *gorm.DB {
	return db
}

func Close(ctx context.Context) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxIdleConns(config.Cfg.PostgreSQLMaxIdle)
	sqlDB.SetMaxOpenConns(config.Cfg.PostgreSQLMaxOpen)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
}

func newLogger() gormlogger.Interface {
	level := gormlogger.Warn
	switch {
	case config.Cfg.IsDevelopment(), config.Cfg.LoggerLevel == "DEBUG":
		level = gormlogger.Info
	case config.Cfg.LoggerLevel == "ERROR":
		level = gormlogger.Error
	}

	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Logger.Sugar().Infof(format, args...)
}
