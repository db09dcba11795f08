package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/app"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/logging"
	"github.com/agenthands/seecat/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to initialize service", zap.Error(err))
	}
	defer a.Close(context.Background())

	srv := server.NewServer(a.Pipeline, a.Metrics, cfg.Metrics.Path, logger)
	if err := server.Run(ctx, cfg.Server, srv.SetupRouter(), logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
