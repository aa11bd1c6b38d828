package gcs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
	ctx      context.Context
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type upload struct {
	bucket, object, contentType string
	writer                      *recordingWriter
}

func fakeFactory(uploads *[]*upload, closeErr error) writerFactory {
	return func(ctx context.Context, bucket, object, contentType string) objectWriter {
		u := &upload{bucket: bucket, object: object, contentType: contentType,
			writer: &recordingWriter{closeErr: closeErr, ctx: ctx}}
		*uploads = append(*uploads, u)
		return u.writer
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestNewRequiresClientAndBucket(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = newWithWriter(Config{Bucket: " "}, nil)
	assert.Error(t, err)
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	var uploads []*upload
	store, err := newWithWriter(Config{Bucket: "scrapes"}, fakeFactory(&uploads, nil))
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "/run-1/specifications.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "gs://scrapes/run-1/specifications.json", uri)
	require.Len(t, uploads, 1)
	assert.Equal(t, "run-1/specifications.json", uploads[0].object)
	assert.Equal(t, "application/json", uploads[0].contentType)
	assert.Equal(t, "{}", uploads[0].writer.String())
	assert.True(t, uploads[0].writer.closed)
}

func TestPutObjectCopyFailureAbortsUpload(t *testing.T) {
	t.Parallel()

	var uploads []*upload
	store, err := newWithWriter(Config{Bucket: "scrapes"}, fakeFactory(&uploads, nil))
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "screenshot.png", "image/png", errReader{})
	require.ErrorContains(t, err, "read failed")
	require.Len(t, uploads, 1)
	assert.Error(t, uploads[0].writer.ctx.Err())
	assert.True(t, uploads[0].writer.closed)
}

func TestPutObjectCommitFailure(t *testing.T) {
	t.Parallel()

	var uploads []*upload
	store, err := newWithWriter(Config{Bucket: "scrapes"}, fakeFactory(&uploads, errors.New("403")))
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "screenshot.png", "image/png", strings.NewReader("png"))
	assert.ErrorContains(t, err, "commit screenshot.png")

	_, err = store.PutObject(context.Background(), "", "", strings.NewReader("png"))
	assert.Error(t, err)
}
