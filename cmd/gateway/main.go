package main

import (
	"github.com/kishoreUdatha/HRM-sub003/internal/app"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/apperror"

	"github.com/gin-gonic/gin"
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
	r := gin.Default()

	if err := app.RunGateway(r); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}
