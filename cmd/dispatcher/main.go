package main

import (
	"github.com/kishoreUdatha/HRM-sub003/internal/app"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/apperror"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	if err := app.RunDispatcher(); err != nil {
		logger.Fatal("dispatcher stopped", zap.Error(err))
	}
}
