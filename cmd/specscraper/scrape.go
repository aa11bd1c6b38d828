package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/app"
	"github.com/JakeFAU/product-spec-scraper/internal/assemble"
	"github.com/JakeFAU/product-spec-scraper/internal/clock/system"
	"github.com/JakeFAU/product-spec-scraper/internal/config"
	"github.com/JakeFAU/product-spec-scraper/internal/extract"
	"github.com/JakeFAU/product-spec-scraper/internal/hash/sha256"
	"github.com/JakeFAU/product-spec-scraper/internal/id/uuid"
	"github.com/JakeFAU/product-spec-scraper/internal/metrics"
	"github.com/JakeFAU/product-spec-scraper/internal/readiness"
	"github.com/JakeFAU/product-spec-scraper/internal/scrape"
	"github.com/JakeFAU/product-spec-scraper/internal/sink"
)

type scrapeFlags struct {
	headless  bool
	outputDir string
}

func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape one product page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = flags.headless
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Output.Dir = flags.outputDir
			}
			return runScrape(cmd.Context(), cfg, logger, args[0], scrape.BrowserOpener{Config: cfg.Browser, Logger: logger})
		},
	}
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "run Chrome headless (the portal may not render)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "directory for local output")
	return cmd
}

func runScrape(ctx context.Context, cfg config.Config, logger *zap.Logger, target string, opener scrape.SessionOpener) error {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url %q: must be absolute", target)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, app.DefaultFactories(), logger)
	if err != nil {
		return err
	}
	defer services.Close()

	runner, recorder, err := buildRunner(cfg, logger, services, opener)
	if err != nil {
		return err
	}
	defer func() {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := recorder.Push(pushCtx, cfg.Metrics); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}()

	res, err := runner.Run(ctx, u.String())
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.String("article_number", res.PrimaryIdentifier()),
		zap.Int("sections_found", res.SectionCount()),
		zap.Bool("data_found", res.HasData()),
	)
	return nil
}

func buildRunner(
	cfg config.Config,
	logger *zap.Logger,
	services *app.App,
	opener scrape.SessionOpener,
) (*scrape.Runner, *metrics.Recorder, error) {
	gate, err := readiness.New(cfg.Readiness, logger.Named("readiness"))
	if err != nil {
		return nil, nil, err
	}
	extractor, err := extract.New(extract.Config{Selectors: cfg.Selectors, MergePolicy: cfg.MergePolicy()}, logger.Named("extract"))
	if err != nil {
		return nil, nil, err
	}
	out, err := sink.New(services.Blobs, cfg.Output.Config, logger)
	if err != nil {
		return nil, nil, err
	}
	clock := system.New()
	recorder := metrics.New()
	runner, err := scrape.New(scrape.Deps{
		Opener:    opener,
		Gate:      gate,
		Extractor: extractor,
		Assembler: assemble.New(cfg.Identifier, clock),
		Sink:      out,
		Hasher:    sha256.New(),
		IDs:       uuid.New(),
		Clock:     clock,
		Results:   services.Results,
		Publisher: services.Publisher,
		Metrics:   recorder,
	}, scrape.Config{Topic: services.Topic}, logger)
	if err != nil {
		return nil, nil, err
	}
	return runner, recorder, nil
}
