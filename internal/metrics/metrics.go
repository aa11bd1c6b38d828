// Package metrics records scrape outcomes as Prometheus collectors. A one-shot CLI
// has no scrape endpoint, so collectors live in a private registry that is pushed to
// a Pushgateway when one is configured.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Stages reported by the scrape runner.
const (
	StageOpen      = "open"
	StageNavigate  = "navigate"
	StageReadiness = "readiness"
	StageExtract   = "extract"
	StagePersist   = "persist"
	StageStore     = "store"
	StagePublish   = "publish"
)

// Config controls pushing.
type Config struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Recorder owns the scrape collectors.
type Recorder struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	sectionsFound *prometheus.GaugeVec
	stageFailures *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrape_runs_total",
				Help: "Scrape runs, labeled by site and status.",
			},
			[]string{"site", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrape_duration_seconds",
				Help:    "Wall time of a scrape run, labeled by site.",
				Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
			},
			[]string{"site"},
		),
		sectionsFound: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scrape_sections_found",
				Help: "Sections in the most recent successful scrape, labeled by site.",
			},
			[]string{"site"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrape_stage_failures_total",
				Help: "Failures, labeled by the stage that failed.",
			},
			[]string{"stage"},
		),
	}
	r.registry.MustRegister(r.runsTotal, r.duration, r.sectionsFound, r.stageFailures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(site, status string, elapsed time.Duration, sections int) {
	s := SanitizeSite(site)
	r.runsTotal.WithLabelValues(s, status).Inc()
	r.duration.WithLabelValues(s).Observe(elapsed.Seconds())
	if status == StatusSuccess {
		r.sectionsFound.WithLabelValues(s).Set(float64(sections))
	}
}

// ObserveStageFailure counts a failure in stage. Non-fatal stages count too.
func (r *Recorder) ObserveStageFailure(stage string) {
	r.stageFailures.WithLabelValues(stage).Inc()
}

// Push sends the registry to the configured Pushgateway. It is a no-op without a URL.
func (r *Recorder) Push(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.PushgatewayURL) == "" {
		return nil
	}
	job := cfg.Job
	if job == "" {
		job = "specscraper"
	}
	if err := push.New(cfg.PushgatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// SanitizeSite reduces a URL to its lowercase hostname, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
