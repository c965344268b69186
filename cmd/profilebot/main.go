package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/profilebot/internal/bot/app"
	"github.com/dmitrijs2005/profilebot/internal/bot/config"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	if cfg.Account != "" {
		if err := config.PromptPassword(cfg, os.Stderr); err != nil {
			logger.Error(ctx, "password unavailable", logging.KeyError, err)
			return 1
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "invalid configuration", logging.KeyError, err)
		return 1
	}

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", logging.KeyError, err)
		return 1
	}
	defer a.Close()

	if _, err := a.Run(ctx); err != nil {
		logger.Error(ctx, "run aborted", logging.KeyError, err)
		return 1
	}
	return 0
}
