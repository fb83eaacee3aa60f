package matcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrImageUnavailable indicates a reference image could not be fetched
// after exhausting retries.
var ErrImageUnavailable = errors.New("reference image unavailable")

// Downloader fetches a reference image by URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// DownloaderConfig holds the configuration for the HTTP downloader.
type DownloaderConfig struct {
	Timeout    time.Duration
	RetryCount int
	MaxBytes   int64
}

// DefaultDownloaderConfig returns a DownloaderConfig with sensible defaults.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Timeout:    15 * time.Second,
		RetryCount: 3,
		MaxBytes:   10 << 20,
	}
}

// HTTPDownloader fetches reference images over HTTP with exponential
// backoff. Server errors are retried; client errors are not.
type HTTPDownloader struct {
	httpClient *http.Client
	config     DownloaderConfig
}

func NewHTTPDownloader(config DownloaderConfig) *HTTPDownloader {
	return &HTTPDownloader{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

var _ Downloader = (*HTTPDownloader)(nil)

// maxBackoff is the maximum backoff duration for retries.
const maxBackoff = 30 * time.Second

// calculateBackoff returns 1s, 2s, 4s, 8s, etc. up to maxBackoff.
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 6; i++ {
		seconds *= 2
	}
	backoff := time.Duration(seconds) * time.Second
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= d.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		data, err := d.fetch(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Only server errors are worth retrying.
		if isClientError(lastErr) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, lastErr)
}

func (d *HTTPDownloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > d.config.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", d.config.MaxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}
	return data, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500
}
