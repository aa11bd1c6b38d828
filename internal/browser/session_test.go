package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ViewportWidth = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.WaitUntil = "whenever"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.NavigationTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	var tabCalls, allocCalls int
	s := &Session{
		tabCancel:   func() { tabCalls++ },
		allocCancel: func() { allocCalls++ },
		logger:      zap.NewNop(),
	}
	s.Close()
	s.Close()
	s.Close()

	assert.Equal(t, 1, tabCalls)
	assert.Equal(t, 1, allocCalls)
}

func TestLifecycleWatcherWaitsForCurrentLoader(t *testing.T) {
	t.Parallel()

	w := newLifecycleWatcher("main", "networkAlmostIdle")

	// about:blank finishing before navigation starts must not count.
	w.observe("main", "", "networkAlmostIdle")
	w.observe("child", "x", "init")
	w.observe("child", "x", "networkAlmostIdle")
	assertOpen(t, w.done)

	w.observe("main", "L1", "init")
	w.observe("main", "L1", "load")
	assertOpen(t, w.done)
	w.observe("main", "L0", "networkAlmostIdle")
	assertOpen(t, w.done)

	w.onEvent(&page.EventLifecycleEvent{
		FrameID:  cdp.FrameID("main"),
		LoaderID: cdp.LoaderID("L1"),
		Name:     "networkAlmostIdle",
	})
	select {
	case <-w.done:
	default:
		t.Fatal("expected watcher to fire for the current loader")
	}

	// Later events must not panic on a closed channel.
	w.observe("main", "L1", "networkAlmostIdle")
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("expected parent cancellation to propagate")
	}
}

func TestScopedHonorsParentDeadline(t *testing.T) {
	t.Parallel()

	s := &Session{ctx: context.Background(), logger: zap.NewNop()}
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ctx, done := s.scoped(parent, 0)
	defer done()
	select {
	case <-ctx.Done():
		assert.True(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
	case <-time.After(time.Second):
		t.Fatal("expected scoped context to inherit the parent deadline")
	}
}

func TestWarmUpDetachesFromCallerAfterLaunch(t *testing.T) {
	t.Parallel()

	tabCtx, tabCancel := context.WithCancel(context.Background())
	defer tabCancel()
	s := &Session{ctx: tabCtx, tabCancel: tabCancel, logger: zap.NewNop()}

	caller, cancelCaller := context.WithCancel(context.Background())
	var got context.Context
	require.NoError(t, s.warmUp(caller, func(ctx context.Context) error {
		got = ctx
		return nil
	}))
	assert.Equal(t, tabCtx, got)

	cancelCaller()
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, s.ctx.Err(), "caller cancellation after launch must not end the tab")
}

func TestWarmUpCanceledDuringLaunch(t *testing.T) {
	t.Parallel()

	tabCtx, tabCancel := context.WithCancel(context.Background())
	defer tabCancel()
	s := &Session{ctx: tabCtx, tabCancel: tabCancel, logger: zap.NewNop()}

	caller, cancelCaller := context.WithCancel(context.Background())
	err := s.warmUp(caller, func(ctx context.Context) error {
		cancelCaller()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, s.ctx.Err())
}

// TestSessionAgainstLocalPage drives a real browser when one is available.
func TestSessionAgainstLocalPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body style="height:3000px">
<script>setTimeout(function(){document.body.appendChild(document.createElement('sie-ps-commercial-data'))}, 50)</script>
</body></html>`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.NavigationTimeout = 15 * time.Second

	openCtx, cancelOpen := context.WithCancel(context.Background())
	s, err := Open(openCtx, cfg, zap.NewNop())
	if err != nil {
		cancelOpen()
		t.Skipf("chrome unavailable: %v", err)
	}
	defer s.Close()
	// The session outlives the context it was opened with.
	cancelOpen()

	if err := s.Navigate(context.Background(), srv.URL); err != nil {
		var navErr *product.NavigationError
		require.ErrorAs(t, err, &navErr)
		t.Skipf("navigation failed: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitAttached(waitCtx, "sie-ps-commercial-data"))

	height, err := s.ScrollBy(context.Background(), 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, height, int64(3000))

	clickCtx, cancelClick := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelClick()
	start := time.Now()
	err = s.Click(clickCtx, "#onetrust-accept-btn-handler")
	assert.ErrorContains(t, err, "no element matches")
	assert.Less(t, time.Since(start), 2*time.Second, "missing selector must fail without polling")

	html, err := s.OuterHTML(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "sie-ps-commercial-data"))

	png, err := s.FullScreenshot(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))
}

func assertOpen(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("watcher fired too early")
	default:
	}
}
