// Package app builds the long-lived services a scrape run needs from configuration and
// releases them afterwards.
package app

import (
	"context"
	"errors"
	"fmt"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/config"
	"github.com/JakeFAU/product-spec-scraper/internal/product"
	"github.com/JakeFAU/product-spec-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/product-spec-scraper/internal/storage/gcs"
	"github.com/JakeFAU/product-spec-scraper/internal/storage/local"
	"github.com/JakeFAU/product-spec-scraper/internal/storage/memory"
	"github.com/JakeFAU/product-spec-scraper/internal/storage/postgres"
)

// Factories construct the external clients. Tests replace them.
type Factories struct {
	GCS       func(ctx context.Context, cfg gcs.Config) (product.BlobStore, func() error, error)
	Postgres  func(ctx context.Context, cfg postgres.Config) (product.ResultStore, func() error, error)
	Publisher func(ctx context.Context, cfg pubsub.Config) (product.Publisher, func() error, error)
}

// DefaultFactories connect to the real services.
func DefaultFactories() Factories {
	return Factories{
		GCS: func(ctx context.Context, cfg gcs.Config) (product.BlobStore, func() error, error) {
			client, err := gcsstorage.NewClient(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("create storage client: %w", err)
			}
			store, err := gcs.New(client, cfg)
			if err != nil {
				return nil, nil, errors.Join(err, client.Close())
			}
			return store, client.Close, nil
		},
		Postgres: func(ctx context.Context, cfg postgres.Config) (product.ResultStore, func() error, error) {
			store, err := postgres.NewResultStore(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return store, func() error { store.Close(); return nil }, nil
		},
		Publisher: func(ctx context.Context, cfg pubsub.Config) (product.Publisher, func() error, error) {
			pub, err := pubsub.New(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return pub, pub.Close, nil
		},
	}
}

// App holds the services. Results and Publisher are nil when not configured.
type App struct {
	Blobs     product.BlobStore
	Results   product.ResultStore
	Publisher product.Publisher
	Topic     string

	closers []namedCloser
	logger  *zap.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

// New initializes the services selected by cfg and fails fast on the first error.
func New(ctx context.Context, cfg config.Config, f Factories, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger.Named("app"), Topic: cfg.PubSub.TopicName}

	switch cfg.Output.Backend {
	case config.BackendGCS:
		store, closeFn, err := f.GCS(ctx, gcs.Config{Bucket: cfg.Output.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs output: %w", err)
		}
		a.Blobs = store
		a.addCloser("gcs", closeFn)
		a.logger.Info("using gcs output", zap.String("bucket", cfg.Output.GCSBucket))
	case config.BackendMemory:
		a.Blobs = memory.NewBlobStore()
		a.logger.Info("using in-memory output; artifacts are discarded on exit")
	default:
		store, err := local.New(local.Config{BaseDir: cfg.Output.Dir})
		if err != nil {
			return nil, fmt.Errorf("init local output: %w", err)
		}
		a.Blobs = store
		a.logger.Info("using local output", zap.String("dir", store.Dir()))
	}

	if cfg.DB.DSN != "" {
		store, closeFn, err := f.Postgres(ctx, cfg.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init result store: %w", err)
		}
		a.Results = store
		a.addCloser("postgres", closeFn)
		a.logger.Info("result rows enabled", zap.String("table", cfg.DB.Table))
	}

	if cfg.PubSub.TopicName != "" {
		pub, closeFn, err := f.Publisher(ctx, cfg.PubSub)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		a.Publisher = pub
		a.addCloser("pubsub", closeFn)
		a.logger.Info("notifications enabled", zap.String("topic", cfg.PubSub.TopicName))
	}
	return a, nil
}

func (a *App) addCloser(name string, fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, namedCloser{name: name, close: fn})
	}
}

// Close releases services in reverse order of creation. Safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
