// Command scraper captures archival snapshots of the configured source
// pages: rendered HTML plus a full-page screenshot per page, written under
// the snapshots directory. It is not part of the extraction pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"opodata/internal/config"
	"opodata/internal/infrastructure"
	"opodata/internal/scraper"
	"opodata/internal/store"
)

func main() {
	dataDir := flag.String("data", "", "data directory (defaults to the configured path)")
	url := flag.String("url", "", "capture a single URL instead of the configured pages")
	headless := flag.Bool("headless", true, "run the browser headless")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-page capture timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	paths := config.NewPaths(cfg.Paths.DataDir)
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create data directories", slog.String("error", err.Error()))
		os.Exit(1)
	}
	st := store.New(paths, logger)

	urls := flag.Args()
	if *url != "" {
		urls = append(urls, *url)
	}
	if len(urls) == 0 {
		urls = cfg.Sources.DirectoryURLs
	}
	if len(urls) == 0 {
		logger.Error("no pages to capture, pass -url or configure directory URLs")
		os.Exit(2)
	}

	s := scraper.New(scraper.Options{Headless: *headless, Timeout: *timeout}, logger)
	ctx := context.Background()

	stamp := time.Now().UTC().Format("2006-01-02T150405Z")
	var failures int
	for i, u := range urls {
		snap, err := s.Capture(ctx, u)
		if err != nil {
			logger.Error("capture failed",
				slog.String("url", u),
				slog.String("error", err.Error()))
			failures++
			continue
		}

		prefix := fmt.Sprintf("%s_page%02d", stamp, i+1)
		if _, err := st.WriteSnapshot(prefix+".html", snap.HTML); err != nil {
			logger.Error("snapshot write failed", slog.String("error", err.Error()))
			failures++
			continue
		}
		if _, err := st.WriteSnapshot(prefix+".png", snap.Screenshot); err != nil {
			logger.Error("screenshot write failed", slog.String("error", err.Error()))
			failures++
		}
	}

	if failures > 0 {
		logger.Error("capture run finished with failures", slog.Int("failures", failures))
		os.Exit(1)
	}
	logger.Info("capture run complete", slog.Int("pages", len(urls)))
}
