package storage

import (
	"fmt"

	"CoachCheck/storage/database"
	"CoachCheck/storage/mq"
	"CoachCheck/storage/redis"
)

// Init 统一初始化 storage 层
func Init() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := redis.Init(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := mq.Init(); err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}

	return nil
}
