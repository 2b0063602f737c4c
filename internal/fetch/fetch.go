// Package fetch downloads source publications. Agencies move files between
// fiscal-year paths without redirects, so every source carries a list of
// candidate URLs tried in order; the first success wins.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "opodata/internal/errors"
)

const userAgent = "opodata/1.0 (public records aggregator)"

// maxBodyBytes bounds a single download. The largest publication seen so
// far is under 10 MB.
const maxBodyBytes = 100 << 20

// Fetcher downloads publications over HTTP.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a fetcher. timeout bounds each individual attempt.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "fetcher")),
	}
}

// TryURLs attempts each candidate URL in order and returns the body and the
// URL that served it. Every candidate failing is a network error carrying
// the last attempt's cause.
func (f *Fetcher) TryURLs(ctx context.Context, urls []string) ([]byte, string, error) {
	if len(urls) == 0 {
		return nil, "", apperrors.NewValidationError("no candidate URLs configured")
	}

	var lastErr error
	for _, url := range urls {
		data, err := f.fetch(ctx, url)
		if err != nil {
			f.logger.Warn("candidate URL failed",
				slog.String("url", url),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		f.logger.Info("fetched publication",
			slog.String("url", url),
			slog.Int("size_bytes", len(data)))
		return data, url, nil
	}

	return nil, "", apperrors.NewNetworkError("all candidate URLs failed", lastErr).
		WithContext("candidates", len(urls))
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status for %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body from %s", url)
	}
	return data, nil
}
