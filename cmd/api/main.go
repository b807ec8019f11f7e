package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/infra/app"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
	"github.com/Sampath5633/Medica-Backend/internal/infra/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to init app", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		zl.Error("application stopped", zap.Error(err))
		os.Exit(1)
	}
}
