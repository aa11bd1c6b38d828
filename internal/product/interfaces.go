package product

import (
	"context"
	"io"
	"time"
)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// ResultStore persists one row per completed scrape.
type ResultStore interface {
	StoreResult(ctx context.Context, row StoredResult) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for integrity checks.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// StoredResult is the relational summary of one scrape.
type StoredResult struct {
	RunID          string
	URL            string
	ArticleNumber  string
	ScrapedAt      time.Time
	SectionsFound  int
	ContentHash    string
	RecordURI      string
	Specifications Sections
}
