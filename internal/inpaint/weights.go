package inpaint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrWeightsMissing is returned when the model file does not exist and no
// download URL is configured.
var ErrWeightsMissing = errors.New("model weights not found")

const maxDownloadRetries = 3

var (
	downloadClient = &http.Client{Timeout: 30 * time.Minute}

	// newDownloadBackOff is replaced in tests to avoid real sleeps.
	newDownloadBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries)
	}
)

// WeightsPath returns where the weights for modelID live: modelPath when
// set, otherwise <modelDir>/<modelID>.onnx.
func WeightsPath(modelDir, modelID, modelPath string) string {
	if modelPath != "" {
		return modelPath
	}
	return filepath.Join(modelDir, modelID+".onnx")
}

// EnsureWeights makes sure the model file at path exists, downloading it
// from url on first use.
//
// The download is retried with exponential backoff on network errors and
// 5xx responses. Client errors (4xx) fail immediately. The file is written
// to a temporary name in the target directory and renamed into place, so a
// failed download never leaves a truncated model behind.
func EnsureWeights(ctx context.Context, path, url string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat model weights: %w", err)
	}
	if url == "" {
		return fmt.Errorf("%w: %s", ErrWeightsMissing, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := download(ctx, url, path)
		if err != nil {
			logger.Warn("model download attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(newDownloadBackOff(), ctx)); err != nil {
		return fmt.Errorf("failed to download model weights: %w", err)
	}
	logger.Info("model weights downloaded", zap.String("path", path), zap.Int("attempts", attempt))
	return nil
}

func download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to move model into place: %w", err))
	}
	return nil
}
