package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/config"
	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the gateway configuration file")
	flag.Parse()

	// Local development secrets; missing .env is fine in production.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Critical error: Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Warning: Failed to sync logger: %v\n", syncErr)
		}
	}()

	// Set global logger
	errors.SetLogger(logger)

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Fatal("Configuration load failed",
			zap.Error(err),
			zap.String("config_path", *configPath),
		)
	}

	srv := server.NewServer(cfg, logger)

	// Graceful shutdown infrastructure
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			zap.String("signal", sig.String()),
			zap.String("action", "initiating graceful shutdown"),
		)
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server startup or runtime error",
			zap.Error(err),
		)
	}
}

// loadConfig reads the YAML config, falling back to defaults when the file is
// absent so the gateway can run from environment variables alone.
func loadConfig(path string, logger *zap.Logger) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Config file not found, using defaults",
			zap.String("config_path", path),
		)
		return config.DefaultConfig(), nil
	}
	return config.LoadFile(path)
}
