// Package browser owns the Chrome instance and tab used for one scrape.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Config controls the browser launch and navigation.
type Config struct {
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	ViewportWidth     int           `mapstructure:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	WaitUntil         string        `mapstructure:"wait_until"`
	UserAgent         string        `mapstructure:"user_agent"`
	ExecPath          string        `mapstructure:"exec_path"`
}

// DefaultConfig launches a visible, unsandboxed 1920x1080 browser; the portal's custom
// elements do not reliably initialize in headless mode.
func DefaultConfig() Config {
	return Config{
		Headless:          false,
		NoSandbox:         true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 60 * time.Second,
		WaitUntil:         "networkAlmostIdle",
	}
}

// Validate checks launch parameters.
func (c Config) Validate() error {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	switch c.WaitUntil {
	case "load", "DOMContentLoaded", "networkIdle", "networkAlmostIdle":
	default:
		return fmt.Errorf("browser.wait_until %q is not a page lifecycle event", c.WaitUntil)
	}
	return nil
}

// Session is one browser plus one tab. Close releases both and may be called any
// number of times.
type Session struct {
	cfg         Config
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	logger      *zap.Logger
}

// Open launches Chrome, opens a tab and applies the viewport.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	s := newSession(cfg, opts, logger)
	err := s.warmUp(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight)))
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	logger.Debug("browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight),
	)
	return s, nil
}

// newSession roots the allocator and tab in a background context; only Close ends them.
func newSession(cfg Config, opts []chromedp.ExecAllocatorOption, logger *zap.Logger) *Session {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))
	return &Session{
		cfg:         cfg,
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}
}

// warmUp runs the first action, which allocates the browser. It must run on the tab
// context itself, so ctx is honored only while run is in flight.
func (s *Session) warmUp(ctx context.Context, run func(tabCtx context.Context) error) error {
	stop := forwardCancel(ctx, s.tabCancel)
	defer stop()
	if err := run(s.ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close cancels the tab and allocator contexts, which terminates Chrome.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		s.logger.Debug("browser closed")
	})
}

// Navigate loads rawURL and waits for the configured lifecycle event on the main frame.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	runCtx, done := s.scoped(ctx, s.cfg.NavigationTimeout)
	defer done()

	var tree *page.FrameTree
	err := chromedp.Run(runCtx,
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			tree, err = page.GetFrameTree().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return &product.NavigationError{URL: rawURL, Timeout: s.cfg.NavigationTimeout, Err: err}
	}

	watcher := newLifecycleWatcher(string(tree.Frame.ID), s.cfg.WaitUntil)
	listenCtx, stopListening := context.WithCancel(runCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, watcher.onEvent)

	if err := chromedp.Run(runCtx, chromedp.Navigate(rawURL)); err != nil {
		return &product.NavigationError{URL: rawURL, Timeout: s.cfg.NavigationTimeout, Err: err}
	}
	select {
	case <-watcher.done:
		s.logger.Debug("navigation settled", zap.String("url", rawURL), zap.String("event", s.cfg.WaitUntil))
		return nil
	case <-runCtx.Done():
		return &product.NavigationError{URL: rawURL, Timeout: s.cfg.NavigationTimeout, Err: runCtx.Err()}
	}
}

// Click clicks the first visible element matching selector. It fails at once when
// nothing matches instead of polling until ctx ends.
func (s *Session) Click(ctx context.Context, selector string) error {
	runCtx, done := s.scoped(ctx, 0)
	defer done()
	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery))
}

// WaitAttached blocks until selector matches a node in the DOM.
func (s *Session) WaitAttached(ctx context.Context, selector string) error {
	runCtx, done := s.scoped(ctx, 0)
	defer done()
	return chromedp.Run(runCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// ScrollBy scrolls the window down by px and reports document.body.scrollHeight.
func (s *Session) ScrollBy(ctx context.Context, px int) (int64, error) {
	runCtx, done := s.scoped(ctx, 0)
	defer done()
	var height int64
	script := fmt.Sprintf(`window.scrollBy(0, %d); document.body.scrollHeight`, px)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &height)); err != nil {
		return 0, err
	}
	return height, nil
}

// OuterHTML returns the serialized document, the snapshot the extractor reads.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	runCtx, done := s.scoped(ctx, 0)
	defer done()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot dom: %w", err)
	}
	return html, nil
}

// FullScreenshot captures the whole page as PNG.
func (s *Session) FullScreenshot(ctx context.Context) ([]byte, error) {
	runCtx, done := s.scoped(ctx, 0)
	defer done()
	var buf []byte
	// quality 100 selects PNG encoding.
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// scoped derives an action context from the tab context that also honors the caller's
// deadline and cancellation, plus an optional extra timeout.
func (s *Session) scoped(parent context.Context, timeout time.Duration) (context.Context, func()) {
	ctx, cancel := context.WithCancel(s.ctx)
	cancels := []context.CancelFunc{cancel}
	if deadline, ok := parent.Deadline(); ok {
		var c context.CancelFunc
		ctx, c = context.WithDeadline(ctx, deadline)
		cancels = append(cancels, c)
	}
	if timeout > 0 {
		var c context.CancelFunc
		ctx, c = context.WithTimeout(ctx, timeout)
		cancels = append(cancels, c)
	}
	stop := forwardCancel(parent, cancel)
	return ctx, func() {
		stop()
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
