// Package gcs uploads scrape artifacts to Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config selects the destination bucket.
type Config struct {
	Bucket string `mapstructure:"gcs_bucket"`
}

// objectWriter is the subset of *storage.Writer used for uploads.
type objectWriter interface {
	io.Writer
	Close() error
}

type writerFactory func(ctx context.Context, bucket, object, contentType string) objectWriter

// BlobStore writes artifacts into a bucket.
type BlobStore struct {
	bucket    string
	newWriter writerFactory
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	return newWithWriter(cfg, func(ctx context.Context, bucket, object, contentType string) objectWriter {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		if contentType != "" {
			w.ContentType = contentType
		}
		return w
	})
}

func newWithWriter(cfg Config, factory writerFactory) (*BlobStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	return &BlobStore{bucket: cfg.Bucket, newWriter: factory}, nil
}

// PutObject uploads data and returns a gs:// URI. The object is committed on Close, so
// a failed copy never publishes a partial artifact.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	object := strings.TrimLeft(strings.TrimSpace(path), "/")
	if object == "" {
		return "", errors.New("object path is required")
	}
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.newWriter(writeCtx, s.bucket, object, contentType)
	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close: %v)", object, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("commit %s: %w", object, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}
