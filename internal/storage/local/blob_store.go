// Package local writes scrape artifacts to a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscapesBase is returned for object paths that resolve outside the base directory.
var ErrPathEscapesBase = errors.New("object path escapes output directory")

// Config holds the output directory. An empty BaseDir means the working directory.
type Config struct {
	BaseDir string `mapstructure:"dir"`
}

// BlobStore writes artifacts beneath a base directory.
type BlobStore struct {
	baseDir string
}

// New prepares the output directory, creating it if needed.
func New(cfg Config) (*BlobStore, error) {
	base := strings.TrimSpace(cfg.BaseDir)
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(abs, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat output directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("output path %s is not a directory", abs)
	}
	return &BlobStore{baseDir: abs}, nil
}

// Dir returns the absolute output directory.
func (s *BlobStore) Dir() string { return s.baseDir }

// PutObject writes data to a file under the base directory and returns its file:// URI.
// Existing files are overwritten.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("object path is required")
	}
	target, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	// Write to a sibling temp file so a failed copy never leaves a truncated artifact.
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}

func (s *BlobStore) resolve(path string) (string, error) {
	target := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	if target == s.baseDir || !strings.HasPrefix(target, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesBase, path)
	}
	return target, nil
}
