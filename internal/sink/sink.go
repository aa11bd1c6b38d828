// Package sink names and writes the artifacts of a scrape run onto a blob store.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Artifact kinds, used in PersistenceError and logs.
const (
	ArtifactRecord            = "record"
	ArtifactScreenshot        = "screenshot"
	ArtifactFailureScreenshot = "failure screenshot"
	ArtifactSnapshot          = "snapshot"
)

// Config names the output artifacts.
type Config struct {
	Prefix              string `mapstructure:"prefix"`
	RecordName          string `mapstructure:"record_name"`
	ScreenshotName      string `mapstructure:"screenshot_name"`
	ErrorScreenshotName string `mapstructure:"error_screenshot_name"`
	SaveHTML            bool   `mapstructure:"save_html"`
	HTMLName            string `mapstructure:"html_name"`
}

// DefaultConfig returns the conventional artifact names.
func DefaultConfig() Config {
	return Config{
		RecordName:          "specifications.json",
		ScreenshotName:      "screenshot.png",
		ErrorScreenshotName: "error_screenshot.png",
		HTMLName:            "page.html",
	}
}

// Validate checks that every enabled artifact has its own name.
func (c Config) Validate() error {
	names := map[string]string{
		"record_name":           c.RecordName,
		"screenshot_name":       c.ScreenshotName,
		"error_screenshot_name": c.ErrorScreenshotName,
	}
	if c.SaveHTML {
		names["html_name"] = c.HTMLName
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("output.%s is required", key)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("output.%s and output.%s must differ (both %q)", key, other, name)
		}
		seen[name] = key
	}
	return nil
}

// Artifact describes a written object.
type Artifact struct {
	Path string
	URI  string
	Data []byte
}

// Sink writes artifacts through a product.BlobStore.
type Sink struct {
	store  product.BlobStore
	cfg    Config
	logger *zap.Logger
}

// New creates a Sink.
func New(store product.BlobStore, cfg Config, logger *zap.Logger) (*Sink, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{store: store, cfg: cfg, logger: logger.Named("sink")}, nil
}

// EncodeRecord renders rec as two-space indented JSON without HTML escaping.
func EncodeRecord(rec product.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SaveRecord writes the JSON record, overwriting any previous one.
func (s *Sink) SaveRecord(ctx context.Context, rec product.Record) (Artifact, error) {
	data, err := EncodeRecord(rec)
	if err != nil {
		return Artifact{}, &product.PersistenceError{Artifact: ArtifactRecord, Path: s.objectPath(s.cfg.RecordName), Err: err}
	}
	return s.put(ctx, ArtifactRecord, s.cfg.RecordName, "application/json", data)
}

// SaveScreenshot writes the success screenshot.
func (s *Sink) SaveScreenshot(ctx context.Context, png []byte) (Artifact, error) {
	return s.put(ctx, ArtifactScreenshot, s.cfg.ScreenshotName, "image/png", png)
}

// SaveFailureScreenshot writes the diagnostic screenshot under its own name.
func (s *Sink) SaveFailureScreenshot(ctx context.Context, png []byte) (Artifact, error) {
	return s.put(ctx, ArtifactFailureScreenshot, s.cfg.ErrorScreenshotName, "image/png", png)
}

// SnapshotEnabled reports whether SaveSnapshot writes anything.
func (s *Sink) SnapshotEnabled() bool { return s.cfg.SaveHTML }

// SaveSnapshot writes the raw DOM snapshot when enabled. A disabled snapshot returns
// a zero Artifact and no error.
func (s *Sink) SaveSnapshot(ctx context.Context, html string) (Artifact, error) {
	if !s.cfg.SaveHTML {
		return Artifact{}, nil
	}
	return s.put(ctx, ArtifactSnapshot, s.cfg.HTMLName, "text/html; charset=utf-8", []byte(html))
}

func (s *Sink) put(ctx context.Context, kind, name, contentType string, data []byte) (Artifact, error) {
	p := s.objectPath(name)
	uri, err := s.store.PutObject(ctx, p, contentType, bytes.NewReader(data))
	if err != nil {
		return Artifact{}, &product.PersistenceError{Artifact: kind, Path: p, Err: err}
	}
	s.logger.Debug("artifact saved", zap.String("artifact", kind), zap.String("uri", uri), zap.Int("bytes", len(data)))
	return Artifact{Path: p, URI: uri, Data: data}, nil
}

func (s *Sink) objectPath(name string) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
