package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"leafdoctor/internal/logger"
)

func testResolver(path, url string, retries int) *ArtifactResolver {
	r := NewArtifactResolver(path, url, retries, logger.NewDiscard())
	r.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return r
}

func TestResolve_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.onnx")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0644))

	got, err := testResolver(path, "http://127.0.0.1:1/unused", 0).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, path, got)
}

func TestResolve_MissingWithoutURL(t *testing.T) {
	_, err := testResolver(filepath.Join(t.TempDir(), "best.onnx"), "", 3).Resolve(context.Background())
	require.ErrorContains(t, err, "model file not found")
}

func TestResolve_DownloadsOnceAndReuses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "models", "best.onnx")
	r := testResolver(path, srv.URL, 2)

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "onnx-bytes", string(data))

	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	// no leftover partial files
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestResolve_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "best.onnx")
	_, err := testResolver(path, srv.URL, 5).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(3), hits.Load())
}

func TestResolve_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "best.onnx")
	_, err := testResolver(path, srv.URL, 5).Resolve(context.Background())
	require.ErrorContains(t, err, "status: 404")
	require.Equal(t, int32(1), hits.Load())

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestResolve_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testResolver(filepath.Join(t.TempDir(), "best.onnx"), srv.URL, 2).Resolve(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(3), hits.Load())
}
