package browser

import (
	"sync"

	"github.com/chromedp/cdproto/page"
)

// lifecycleWatcher closes done once the main frame's current loader reports the target
// lifecycle event. An "init" event starts a new loader and resets the wait, so events
// left over from about:blank are ignored.
type lifecycleWatcher struct {
	frameID string
	target  string

	mu     sync.Mutex
	loader string
	once   sync.Once
	done   chan struct{}
}

func newLifecycleWatcher(frameID, target string) *lifecycleWatcher {
	return &lifecycleWatcher{
		frameID: frameID,
		target:  target,
		done:    make(chan struct{}),
	}
}

func (w *lifecycleWatcher) onEvent(ev any) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok {
		w.observe(string(e.FrameID), string(e.LoaderID), e.Name)
	}
}

func (w *lifecycleWatcher) observe(frameID, loaderID, name string) {
	if frameID != w.frameID {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "init" {
		w.loader = loaderID
		return
	}
	if w.loader == "" || loaderID != w.loader || name != w.target {
		return
	}
	w.once.Do(func() { close(w.done) })
}
