package main

import (
	"context"
	"os"

	"ProviderDirectory/internal/app"
	"ProviderDirectory/internal/config"
	"ProviderDirectory/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	application := app.New(cfg, logger)

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
