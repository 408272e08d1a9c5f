package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/offerhub/offerhub/internal/app"
	"github.com/offerhub/offerhub/internal/config"
	"github.com/offerhub/offerhub/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("offerhub-worker", cfg.LogLevel)
	log.Info("starting offerhub worker",
		slog.String("environment", cfg.Environment),
		slog.String("kafka_group", cfg.KafkaGroupID),
	)

	application, err := app.NewWorkerApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run worker: %w", err)
	}

	log.Info("offerhub worker stopped")
	return nil
}
