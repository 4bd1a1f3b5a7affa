package main

import (
	"CoachCheck/config"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/logger"
)

func main() {
	config.Init()
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
