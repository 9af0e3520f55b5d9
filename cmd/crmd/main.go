package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crm-service/internal/app"
	"crm-service/internal/config"
	"crm-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	envFilePath      = ".env"
	signalBufferSize = 1
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	service, err := app.New(context.Background(), cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize service", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- service.Start()
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)

	select {
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zlog.Error("server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := service.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zlog.Info("server exited gracefully")
}
