package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"leafdoctor/internal/logger"
)

// ArtifactResolver locates the model file, downloading it on first run.
type ArtifactResolver struct {
	Path    string
	URL     string
	Retries int
	Client  *http.Client
	Logger  *logger.Logger

	newBackOff func() backoff.BackOff
}

// NewArtifactResolver creates a resolver for a local path and optional remote URL.
func NewArtifactResolver(path, url string, retries int, logger *logger.Logger) *ArtifactResolver {
	return &ArtifactResolver{
		Path:    path,
		URL:     url,
		Retries: retries,
		Client:  &http.Client{Timeout: 10 * time.Minute},
		Logger:  logger,
	}
}

// Resolve returns a local path to the model, downloading it if missing.
func (r *ArtifactResolver) Resolve(ctx context.Context) (string, error) {
	if info, err := os.Stat(r.Path); err == nil && !info.IsDir() {
		return r.Path, nil
	}

	if r.URL == "" {
		return "", fmt.Errorf("model file not found: %s", r.Path)
	}

	r.Logger.Info("Model not found at %s, downloading from %s", r.Path, r.URL)

	if err := os.MkdirAll(filepath.Dir(r.Path), 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := r.download(ctx)
		if err != nil {
			r.Logger.Warning("Model download attempt %d failed: %v", attempt, err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(r.backOff(), ctx)); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}

	r.Logger.Info("Model downloaded to %s", r.Path)
	return r.Path, nil
}

func (r *ArtifactResolver) backOff() backoff.BackOff {
	var b backoff.BackOff
	if r.newBackOff != nil {
		b = r.newBackOff()
	} else {
		b = backoff.NewExponentialBackOff()
	}
	retries := r.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// download streams the model into a sibling file and renames it into place.
func (r *ArtifactResolver) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("model download failed with status: %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download failed with status: %d", resp.StatusCode)
	}

	partPath := fmt.Sprintf("%s.%s.part", r.Path, uuid.NewString())
	part, err := os.Create(partPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create %s: %w", partPath, err))
	}

	_, copyErr := io.Copy(part, resp.Body)
	closeErr := part.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(partPath)
		if copyErr != nil {
			return fmt.Errorf("write model: %w", copyErr)
		}
		return fmt.Errorf("write model: %w", closeErr)
	}

	if err := os.Rename(partPath, r.Path); err != nil {
		os.Remove(partPath)
		return backoff.Permanent(fmt.Errorf("move model into place: %w", err))
	}
	return nil
}
