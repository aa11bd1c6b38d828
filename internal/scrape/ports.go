package scrape

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/browser"
	"github.com/JakeFAU/product-spec-scraper/internal/readiness"
)

// Session is the page handle the runner drives.
type Session interface {
	readiness.Driver
	Navigate(ctx context.Context, url string) error
	OuterHTML(ctx context.Context) (string, error)
	FullScreenshot(ctx context.Context) ([]byte, error)
	Close()
}

// SessionOpener launches a fresh, exclusively owned Session.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to SessionOpener.
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// BrowserOpener launches Chrome sessions.
type BrowserOpener struct {
	Config browser.Config
	Logger *zap.Logger
}

// Open starts a new browser.
func (o BrowserOpener) Open(ctx context.Context) (Session, error) {
	s, err := browser.Open(ctx, o.Config, o.Logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
