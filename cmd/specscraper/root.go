package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/config"
	"github.com/JakeFAU/product-spec-scraper/internal/logging"
)

type ctxKey string

const (
	cfgKey    ctxKey = "config"
	loggerKey ctxKey = "logger"
)

// newRootCmd loads configuration and the logger before any subcommand runs.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "specscraper",
		Short: "Extracts structured product specifications from rendered product pages.",
		Long: `specscraper opens a product page in Chrome, waits for the specification
component to render, extracts every section into JSON and saves it with a
full-page screenshot.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
			ctx = context.WithValue(ctx, loggerKey, logger)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if logger, ok := cmd.Context().Value(loggerKey).(*zap.Logger); ok {
				_ = logger.Sync() // best-effort flush; stderr sync fails on some terminals
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newScrapeCmd(), newDecodeCmd())
	return cmd
}

func resolve(ctx context.Context) (config.Config, *zap.Logger, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return config.Config{}, nil, errors.New("configuration not loaded")
	}
	logger, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok || logger == nil {
		return config.Config{}, nil, errors.New("logger not initialized")
	}
	return cfg, logger, nil
}
