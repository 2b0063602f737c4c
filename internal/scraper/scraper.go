// Package scraper captures archival snapshots of the directory site with a
// headless browser. The site is statically generated, but its rendered pages
// change between deploys; a snapshot preserves what the public saw when a
// dataset was produced.
package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "opodata/internal/errors"
)

// Options configures a capture run.
type Options struct {
	// Headless disables the visible browser window; on for unattended runs.
	Headless bool
	// Timeout bounds one page capture.
	Timeout time.Duration
}

// Snapshot is one captured page: the final DOM plus a full-page screenshot.
type Snapshot struct {
	URL        string
	HTML       []byte
	Screenshot []byte
	CapturedAt time.Time
}

// Scraper drives the headless browser.
type Scraper struct {
	opts   Options
	logger *slog.Logger
}

// New creates a scraper.
func New(opts Options, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Scraper{opts: opts, logger: logger.With(slog.String("component", "scraper"))}
}

// Capture renders one page and returns its final DOM. The wait is for body
// visibility, not network idle: the site is static and paints in one pass.
func (s *Scraper) Capture(ctx context.Context, url string) (*Snapshot, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, s.opts.Timeout)
	defer cancelRun()

	start := time.Now()
	var html string
	var screenshot []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.FullScreenshot(&screenshot, 90),
	)
	if err != nil {
		return nil, apperrors.NewNetworkError("page capture failed", err).
			WithContext("url", url)
	}

	s.logger.Info("captured page",
		slog.String("url", url),
		slog.Int("html_bytes", len(html)),
		slog.Int("screenshot_bytes", len(screenshot)),
		slog.String("duration", time.Since(start).String()))

	return &Snapshot{
		URL:        url,
		HTML:       []byte(html),
		Screenshot: screenshot,
		CapturedAt: start.UTC(),
	}, nil
}

// CaptureAll renders each page in turn and returns the snapshots taken
// before the first failure, along with that failure.
func (s *Scraper) CaptureAll(ctx context.Context, urls []string) ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0, len(urls))
	for _, url := range urls {
		snap, err := s.Capture(ctx, url)
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, nil
}
