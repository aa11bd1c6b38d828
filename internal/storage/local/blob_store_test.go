package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-spec-scraper/internal/storage/local"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("CreatesMissingDir", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "out", "nested")
		store, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.DirExists(t, dir)
		assert.Equal(t, dir, store.Dir())
	})

	t.Run("EmptyMeansWorkingDir", func(t *testing.T) {
		t.Parallel()
		store, err := local.New(local.Config{})
		require.NoError(t, err)
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, store.Dir())
	})

	t.Run("FileIsNotDir", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.ErrorContains(t, err, "not a directory")
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("WritesAndOverwrites", func(t *testing.T) {
		t.Parallel()
		uri, err := store.PutObject(ctx, "runs/specifications.json", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "runs", "specifications.json")), uri)

		_, err = store.PutObject(ctx, "runs/specifications.json", "application/json", strings.NewReader(`{"a":1}`))
		require.NoError(t, err)
		// #nosec G304 -- test reads from its own temp directory.
		got, err := os.ReadFile(filepath.Join(dir, "runs", "specifications.json"))
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		t.Parallel()
		_, err := store.PutObject(ctx, " ", "", strings.NewReader("x"))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		t.Parallel()
		for _, p := range []string{"../escape.png", "a/../../escape.png", "."} {
			_, err := store.PutObject(ctx, p, "", strings.NewReader("x"))
			assert.ErrorIs(t, err, local.ErrPathEscapesBase, p)
		}
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.png"))
	})

	t.Run("ReaderFailureLeavesNothing", func(t *testing.T) {
		t.Parallel()
		_, err := store.PutObject(ctx, "broken/screenshot.png", "image/png", failingReader{})
		require.Error(t, err)
		entries, err := os.ReadDir(filepath.Join(dir, "broken"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
