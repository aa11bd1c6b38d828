// Package readiness drives a freshly navigated page to a state where the specification
// component is fully rendered.
//
// The target renders through a third-party web component that exposes no ready signal,
// so the gate approximates one: fixed settle delays, a best-effort consent click, a
// bounded wait for the component root, and a progressive scroll that forces lazy
// sections to render. The delays are heuristics, not guarantees; all of them are
// configurable so they can be tuned or replaced without touching extraction.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Driver is the page surface the gate needs.
type Driver interface {
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// WaitAttached blocks until an element matching selector is in the DOM.
	WaitAttached(ctx context.Context, selector string) error
	// ScrollBy scrolls the viewport down by px and returns the document scroll height.
	ScrollBy(ctx context.Context, px int) (int64, error)
}

// Config holds every timing constant and selector used by the gate.
type Config struct {
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	ConsentSelectors  []string      `mapstructure:"consent_selectors"`
	ConsentTimeout    time.Duration `mapstructure:"consent_timeout"`
	ConsentDelay      time.Duration `mapstructure:"consent_delay"`
	ComponentSelector string        `mapstructure:"component_selector"`
	ComponentTimeout  time.Duration `mapstructure:"component_timeout"`
	ScrollStep        int           `mapstructure:"scroll_step"`
	ScrollInterval    time.Duration `mapstructure:"scroll_interval"`
	MaxScrollSteps    int           `mapstructure:"max_scroll_steps"`
	FinalSettle       time.Duration `mapstructure:"final_settle"`
}

// DefaultConsentSelectors lists accept-all buttons of the consent managers seen on
// product portals, most specific first.
func DefaultConsentSelectors() []string {
	return []string{
		`button[data-testid="uc-accept-all-button"]`,
		`#onetrust-accept-btn-handler`,
		`#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll`,
		`.cc-btn.cc-allow`,
	}
}

// DefaultConfig mirrors the timings that proved stable against the product portal.
func DefaultConfig() Config {
	return Config{
		SettleDelay:       3 * time.Second,
		ConsentSelectors:  DefaultConsentSelectors(),
		ConsentTimeout:    5 * time.Second,
		ConsentDelay:      3 * time.Second,
		ComponentSelector: "sie-ps-commercial-data",
		ComponentTimeout:  30 * time.Second,
		ScrollStep:        100,
		ScrollInterval:    100 * time.Millisecond,
		MaxScrollSteps:    2000,
		FinalSettle:       5 * time.Second,
	}
}

// Validate enforces the bounds the scroll loop and waits rely on.
func (c Config) Validate() error {
	if c.ComponentSelector == "" {
		return fmt.Errorf("readiness.component_selector is required")
	}
	if c.ComponentTimeout <= 0 {
		return fmt.Errorf("readiness.component_timeout must be > 0")
	}
	if c.ScrollStep <= 0 {
		return fmt.Errorf("readiness.scroll_step must be > 0")
	}
	if c.ScrollInterval <= 0 {
		return fmt.Errorf("readiness.scroll_interval must be > 0")
	}
	if c.MaxScrollSteps <= 0 {
		return fmt.Errorf("readiness.max_scroll_steps must be > 0")
	}
	if c.SettleDelay < 0 || c.ConsentDelay < 0 || c.FinalSettle < 0 || c.ConsentTimeout < 0 {
		return fmt.Errorf("readiness delays must be >= 0")
	}
	return nil
}

// Sleeper pauses for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Gate runs the readiness protocol.
type Gate struct {
	cfg    Config
	sleep  Sleeper
	logger *zap.Logger
}

// Option customizes a Gate.
type Option func(*Gate)

// WithSleeper replaces the context-aware timer sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(g *Gate) { g.sleep = s }
}

// New builds a Gate.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{cfg: cfg, sleep: sleepContext, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Prepare runs settle, consent, component wait, scroll and final settle in order.
// Only a missing component or a canceled context ends it early.
func (g *Gate) Prepare(ctx context.Context, d Driver) error {
	if err := g.sleep(ctx, g.cfg.SettleDelay); err != nil {
		return fmt.Errorf("settle delay: %w", err)
	}
	if err := g.dismissConsent(ctx, d); err != nil {
		return err
	}
	if err := g.waitComponent(ctx, d); err != nil {
		return err
	}
	if err := g.scroll(ctx, d); err != nil {
		return err
	}
	if err := g.sleep(ctx, g.cfg.FinalSettle); err != nil {
		return fmt.Errorf("final settle: %w", err)
	}
	return nil
}

// dismissConsent returns an error only when ctx itself is done.
func (g *Gate) dismissConsent(ctx context.Context, d Driver) error {
	for _, selector := range g.cfg.ConsentSelectors {
		clickCtx, cancel := withOptionalTimeout(ctx, g.cfg.ConsentTimeout)
		err := d.Click(clickCtx, selector)
		cancel()
		if err == nil {
			g.logger.Info("consent dismissed", zap.String("selector", selector))
			if err := g.sleep(ctx, g.cfg.ConsentDelay); err != nil {
				return fmt.Errorf("consent delay: %w", err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("consent dismissal: %w", ctx.Err())
		}
		g.logger.Debug("consent selector missed", zap.String("selector", selector), zap.Error(err))
	}
	g.logger.Info("consent popup not found; continuing", zap.Error(product.ErrConsentDismissalMiss))
	return nil
}

func (g *Gate) waitComponent(ctx context.Context, d Driver) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.ComponentTimeout)
	defer cancel()
	if err := d.WaitAttached(waitCtx, g.cfg.ComponentSelector); err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("component wait: %w", ctx.Err())
		}
		return &product.ComponentNotFoundError{
			Selector: g.cfg.ComponentSelector,
			Timeout:  g.cfg.ComponentTimeout,
			Err:      err,
		}
	}
	g.logger.Debug("component attached", zap.String("selector", g.cfg.ComponentSelector))
	return nil
}

// scroll advances by ScrollStep per interval until the distance covered reaches the
// scroll height reported after the latest step.
func (g *Gate) scroll(ctx context.Context, d Driver) error {
	var travelled int64
	for step := 1; step <= g.cfg.MaxScrollSteps; step++ {
		height, err := d.ScrollBy(ctx, g.cfg.ScrollStep)
		if err != nil {
			return fmt.Errorf("scroll step %d: %w", step, err)
		}
		travelled += int64(g.cfg.ScrollStep)
		if travelled >= height {
			g.logger.Debug("scroll complete", zap.Int("steps", step), zap.Int64("height", height))
			return nil
		}
		if err := g.sleep(ctx, g.cfg.ScrollInterval); err != nil {
			return fmt.Errorf("scroll interval: %w", err)
		}
	}
	g.logger.Warn("scroll step cap reached", zap.Int("max_steps", g.cfg.MaxScrollSteps))
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
