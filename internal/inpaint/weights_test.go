package inpaint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noWaitBackOff(t *testing.T) {
	t.Helper()
	prev := newDownloadBackOff
	newDownloadBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxDownloadRetries)
	}
	t.Cleanup(func() { newDownloadBackOff = prev })
}

func TestWeightsPath(t *testing.T) {
	assert.Equal(t, filepath.Join("models", "lama-manga.onnx"), WeightsPath("models", "lama-manga", ""))
	assert.Equal(t, "/opt/lama.onnx", WeightsPath("models", "lama-manga", "/opt/lama.onnx"))
}

func TestEnsureWeights_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o644))

	err := EnsureWeights(context.Background(), path, "http://127.0.0.1:0/never-called", nil)
	assert.NoError(t, err)
}

func TestEnsureWeights_MissingWithoutURL(t *testing.T) {
	err := EnsureWeights(context.Background(), filepath.Join(t.TempDir(), "model.onnx"), "", nil)
	assert.ErrorIs(t, err, ErrWeightsMissing)
}

func TestEnsureWeights_RetriesServerErrors(t *testing.T) {
	noWaitBackOff(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "nested", "model.onnx")
	require.NoError(t, EnsureWeights(context.Background(), path, srv.URL, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "onnx-bytes", string(data))
	assert.Equal(t, int32(3), hits.Load())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary download file left behind")
}

func TestEnsureWeights_ClientErrorIsPermanent(t *testing.T) {
	noWaitBackOff(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "model.onnx")
	err := EnsureWeights(context.Background(), path, srv.URL, nil)

	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsureWeights_GivesUpAfterRetries(t *testing.T) {
	noWaitBackOff(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := EnsureWeights(context.Background(), filepath.Join(t.TempDir(), "model.onnx"), srv.URL, nil)

	assert.Error(t, err)
	assert.Equal(t, int32(1+maxDownloadRetries), hits.Load())
}
