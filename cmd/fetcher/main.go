// fetcher refreshes securities and FX rates from the upstream provider,
// publishes quotes for requested symbols and serves the market data API.
// Usage: go run ./cmd/fetcher --config configs/fetcher.local.yaml
//
// Required environment variables (referenced from the example config):
//
//	FMP_API_KEY - Financial Modeling Prep API key
//	REDIS_URL   - redis://[:password@]host:port/db
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/market-data/internal/app"
	"github.com/rickgao/market-data/internal/config"
	"github.com/rickgao/market-data/internal/logging"
	"github.com/rickgao/market-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/fetcher.local.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closer.Close()
	logger = logger.With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting fetcher",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)
	logger.Info("configuration loaded",
		"upstream_url", cfg.Upstream.BaseURL,
		"broker", cfg.Broker.Driver,
		"channel", cfg.Broker.Channel,
		"quote_interval", cfg.Schedule.QuoteInterval,
		"fx_interval", cfg.Schedule.FXInterval,
		"persistence", cfg.Database.Enabled(),
	)

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("fetcher stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("fetcher stopped")
}
