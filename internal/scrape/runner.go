package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/assemble"
	"github.com/JakeFAU/product-spec-scraper/internal/extract"
	"github.com/JakeFAU/product-spec-scraper/internal/metrics"
	"github.com/JakeFAU/product-spec-scraper/internal/product"
	"github.com/JakeFAU/product-spec-scraper/internal/readiness"
	"github.com/JakeFAU/product-spec-scraper/internal/sink"
)

// Deps wires the runner's collaborators. Results, Publisher and Metrics are optional.
type Deps struct {
	Opener    SessionOpener
	Gate      *readiness.Gate
	Extractor *extract.Extractor
	Assembler *assemble.Assembler
	Sink      *sink.Sink
	Hasher    product.Hasher
	IDs       product.IDGenerator
	Clock     product.Clock
	Results   product.ResultStore
	Publisher product.Publisher
	Metrics   *metrics.Recorder
}

// Config tunes the runner.
type Config struct {
	// Topic receives completion notifications when a Publisher is set.
	Topic string
	// FailureCaptureTimeout bounds the diagnostic screenshot, which runs even after
	// the run's context has expired.
	FailureCaptureTimeout time.Duration
}

// Runner executes scrapes.
type Runner struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// Notification is published after a successful run.
type Notification struct {
	RunID         string `json:"runId"`
	URL           string `json:"url"`
	ArticleNumber string `json:"articleNumber"`
	RecordURI     string `json:"recordUri"`
	ContentHash   string `json:"contentHash"`
	SectionsFound int    `json:"sectionsFound"`
	ScrapedAt     string `json:"scrapedAt"`
}

// Attributes lets subscribers filter without decoding the body.
func (n Notification) Attributes() map[string]string {
	return map[string]string{
		"run_id":         n.RunID,
		"article_number": n.ArticleNumber,
	}
}

// New validates deps and builds a Runner.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Runner, error) {
	switch {
	case deps.Opener == nil:
		return nil, errors.New("session opener is required")
	case deps.Gate == nil:
		return nil, errors.New("readiness gate is required")
	case deps.Extractor == nil:
		return nil, errors.New("extractor is required")
	case deps.Assembler == nil:
		return nil, errors.New("assembler is required")
	case deps.Sink == nil:
		return nil, errors.New("sink is required")
	case deps.Hasher == nil:
		return nil, errors.New("hasher is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	}
	if deps.Publisher != nil && cfg.Topic == "" {
		return nil, errors.New("topic is required when a publisher is configured")
	}
	if cfg.FailureCaptureTimeout <= 0 {
		cfg.FailureCaptureTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{deps: deps, cfg: cfg, logger: logger.Named("scrape")}, nil
}

// Run scrapes url once. Only readiness and persistence failures end the run; storing
// the row and publishing are reported but never fail a run whose record was saved.
func (r *Runner) Run(ctx context.Context, url string) (product.Result, error) {
	start := r.deps.Clock.Now()
	runID, err := r.deps.IDs.NewID()
	if err != nil {
		return product.Result{}, fmt.Errorf("run id: %w", err)
	}
	logger := r.logger.With(zap.String("run_id", runID), zap.String("url", url))
	logger.Info("scrape started")

	res, stage, err := r.run(ctx, logger, runID, url)
	elapsed := r.deps.Clock.Now().Sub(start)
	if err != nil {
		r.observeStageFailure(stage)
		r.observeRun(url, metrics.StatusFailure, elapsed, 0)
		logger.Error("scrape failed", zap.String("stage", stage), zap.Duration("elapsed", elapsed), zap.Error(err))
		return product.Result{}, err
	}
	r.observeRun(url, metrics.StatusSuccess, elapsed, res.SectionCount())
	logger.Info("scrape finished",
		zap.String("article_number", res.PrimaryIdentifier()),
		zap.Int("sections_found", res.SectionCount()),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, runID, url string) (product.Result, string, error) {
	sess, err := r.deps.Opener.Open(ctx)
	if err != nil {
		return product.Result{}, metrics.StageOpen, fmt.Errorf("open browser: %w", err)
	}
	defer sess.Close()

	res, rec, stage, err := r.extract(ctx, logger, sess, url)
	if err == nil {
		var art sink.Artifact
		art, stage, err = r.persist(ctx, logger, sess, rec)
		if err == nil {
			r.report(ctx, logger, runID, res, rec, art)
			return res, "", nil
		}
	}
	r.captureFailure(ctx, logger, sess)
	return product.Result{}, stage, err
}

func (r *Runner) extract(
	ctx context.Context,
	logger *zap.Logger,
	sess Session,
	url string,
) (product.Result, product.Record, string, error) {
	if err := sess.Navigate(ctx, url); err != nil {
		return product.Result{}, product.Record{}, metrics.StageNavigate, err
	}
	if err := r.deps.Gate.Prepare(ctx, sess); err != nil {
		return product.Result{}, product.Record{}, metrics.StageReadiness, err
	}
	html, err := sess.OuterHTML(ctx)
	if err != nil {
		return product.Result{}, product.Record{}, metrics.StageExtract, err
	}
	sections, err := r.deps.Extractor.Extract(html)
	if err != nil {
		return product.Result{}, product.Record{}, metrics.StageExtract, err
	}
	res := r.deps.Assembler.Assemble(url, sections)
	logger.Debug("sections extracted", zap.Int("sections", res.SectionCount()))

	if r.deps.Sink.SnapshotEnabled() {
		if _, err := r.deps.Sink.SaveSnapshot(ctx, html); err != nil {
			r.observeStageFailure(metrics.StagePersist)
			logger.Warn("dom snapshot not saved", zap.Error(err))
		}
	}
	return res, res.Record(), "", nil
}

func (r *Runner) persist(
	ctx context.Context,
	logger *zap.Logger,
	sess Session,
	rec product.Record,
) (sink.Artifact, string, error) {
	art, err := r.deps.Sink.SaveRecord(ctx, rec)
	if err != nil {
		return sink.Artifact{}, metrics.StagePersist, err
	}
	logger.Info("record saved", zap.String("uri", art.URI))

	png, err := sess.FullScreenshot(ctx)
	if err != nil {
		return sink.Artifact{}, metrics.StagePersist, &product.PersistenceError{
			Artifact: sink.ArtifactScreenshot,
			Path:     "capture",
			Err:      err,
		}
	}
	shot, err := r.deps.Sink.SaveScreenshot(ctx, png)
	if err != nil {
		return sink.Artifact{}, metrics.StagePersist, err
	}
	logger.Info("screenshot saved", zap.String("uri", shot.URI))
	return art, "", nil
}

// report stores the summary row and publishes the notification.
func (r *Runner) report(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	res product.Result,
	rec product.Record,
	art sink.Artifact,
) {
	if r.deps.Results == nil && r.deps.Publisher == nil {
		return
	}
	hash, err := r.deps.Hasher.Hash(art.Data)
	if err != nil {
		logger.Warn("record hash failed", zap.Error(err))
	}

	if r.deps.Results != nil {
		row := product.StoredResult{
			RunID:          runID,
			URL:            rec.URL,
			ArticleNumber:  rec.ArticleNumber,
			ScrapedAt:      res.ScrapedAt(),
			SectionsFound:  rec.SectionsFound,
			ContentHash:    hash,
			RecordURI:      art.URI,
			Specifications: rec.Specifications,
		}
		if err := r.deps.Results.StoreResult(ctx, row); err != nil {
			r.observeStageFailure(metrics.StageStore)
			logger.Warn("result row not stored", zap.Error(err))
		}
	}

	if r.deps.Publisher != nil {
		note := Notification{
			RunID:         runID,
			URL:           rec.URL,
			ArticleNumber: rec.ArticleNumber,
			RecordURI:     art.URI,
			ContentHash:   hash,
			SectionsFound: rec.SectionsFound,
			ScrapedAt:     rec.ScrapedAt,
		}
		msgID, err := r.deps.Publisher.Publish(ctx, r.cfg.Topic, note)
		if err != nil {
			r.observeStageFailure(metrics.StagePublish)
			logger.Warn("notification not published", zap.Error(err))
			return
		}
		logger.Debug("notification published", zap.String("message_id", msgID))
	}
}

// captureFailure saves a diagnostic screenshot. Errors are logged only.
func (r *Runner) captureFailure(ctx context.Context, logger *zap.Logger, sess Session) {
	captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.FailureCaptureTimeout)
	defer cancel()

	png, err := sess.FullScreenshot(captureCtx)
	if err != nil {
		logger.Warn("failure screenshot not captured", zap.Error(err))
		return
	}
	art, err := r.deps.Sink.SaveFailureScreenshot(captureCtx, png)
	if err != nil {
		logger.Warn("failure screenshot not saved", zap.Error(err))
		return
	}
	logger.Info("failure screenshot saved", zap.String("uri", art.URI))
}

func (r *Runner) observeRun(url, status string, elapsed time.Duration, sections int) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveRun(url, status, elapsed, sections)
	}
}

func (r *Runner) observeStageFailure(stage string) {
	if r.deps.Metrics != nil && stage != "" {
		r.deps.Metrics.ObserveStageFailure(stage)
	}
}
