package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"https", "https://Sieportal.Siemens.com/en-ww/products-services/detail/3RT2017-1HA41", "sieportal.siemens.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestObserveRun(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRun("https://example.com/p", StatusSuccess, 12*time.Second, 4)
	r.ObserveRun("https://example.com/q", StatusFailure, time.Second, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(r.runsTotal.WithLabelValues("example.com", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.runsTotal.WithLabelValues("example.com", StatusFailure)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(r.sectionsFound.WithLabelValues("example.com")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestObserveStageFailure(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveStageFailure(StageReadiness)
	r.ObserveStageFailure(StageReadiness)
	r.ObserveStageFailure(StagePublish)

	assert.InDelta(t, 2, testutil.ToFloat64(r.stageFailures.WithLabelValues(StageReadiness)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.stageFailures.WithLabelValues(StagePublish)), 0)
}

func TestPush(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var paths []string
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		mu.Lock()
		paths = append(paths, req.URL.Path)
		body = string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.ObserveStageFailure(StageNavigate)
	require.NoError(t, r.Push(context.Background(), Config{PushgatewayURL: srv.URL, Job: "nightly"}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], "/job/nightly"), paths[0])
	assert.NotEmpty(t, body)
}

func TestPushWithoutURLIsNoop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, New().Push(context.Background(), Config{}))
}

func TestPushFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), Config{PushgatewayURL: srv.URL})
	assert.ErrorContains(t, err, "push metrics")
}
