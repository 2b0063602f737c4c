// Command aggregator runs the dataset pipeline: fetch the source
// publications, extract one record set per source, and merge them into the
// canonical dataset. Steps run sequentially and can be invoked separately,
// so a failed run resumes from the data already on disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"opodata/internal/config"
	apperrors "opodata/internal/errors"
	"opodata/internal/extract"
	"opodata/internal/fetch"
	"opodata/internal/infrastructure"
	"opodata/internal/merge"
	"opodata/internal/propublica"
	"opodata/internal/store"
	"opodata/pkg/contracts/domain"
)

// download names per source key.
const (
	downloadDirectory = "directory.json"
	downloadCMS       = "cms_summary.xlsx"
	downloadHRSA      = "hrsa_assessment.xlsx"
	downloadSRTR      = "srtr_utilization.xlsx"
)

func main() {
	step := flag.String("step", "all", "pipeline step to run: fetch, extract, merge, or all")
	dataDir := flag.String("data", "", "data directory (defaults to the configured path)")
	source := flag.String("source", "", "restrict fetch/extract to one source key")
	skipFetch := flag.Bool("skip-fetch", false, "extract from existing downloads without fetching")
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

	p := &pipeline{
		cfg:     cfg,
		logger:  logger,
		store:   store.New(paths, logger),
		fetcher: fetch.New(cfg.ProPublica.Timeout, logger),
		source:  *source,
	}

	ctx := context.Background()
	logger.Info("starting aggregator",
		slog.String("step", *step),
		slog.String("data_dir", cfg.Paths.DataDir),
		slog.String("source", *source))

	var runErr error
	switch *step {
	case "fetch":
		runErr = p.fetch(ctx)
	case "extract":
		runErr = p.extract(ctx)
	case "merge":
		runErr = p.merge()
	case "all":
		if !*skipFetch {
			runErr = p.fetch(ctx)
		}
		if runErr == nil {
			runErr = p.extract(ctx)
		}
		if runErr == nil {
			runErr = p.merge()
		}
	default:
		logger.Error("unknown step", slog.String("step", *step))
		os.Exit(2)
	}

	if runErr != nil {
		logger.Error("pipeline failed", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("pipeline complete")
}

type pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	fetcher *fetch.Fetcher

	// source restricts fetch/extract to one source key; empty means all.
	source string
}

func (p *pipeline) wants(source string) bool {
	return p.source == "" || p.source == source
}

// fetch downloads every selected publication. One source failing is logged
// and skipped: the merge runs with whatever sources answered.
func (p *pipeline) fetch(ctx context.Context) error {
	downloads := []struct {
		source string
		name   string
		urls   []string
	}{
		{domain.SourceBase, downloadDirectory, p.cfg.Sources.DirectoryURLs},
		{domain.SourceCMSTier, downloadCMS, p.cfg.Sources.CMSURLs},
		{domain.SourceHRSA, downloadHRSA, p.cfg.Sources.HRSAURLs},
		{domain.SourceSRTR, downloadSRTR, p.cfg.Sources.SRTRURLs},
	}

	var fetched int
	for _, d := range downloads {
		if !p.wants(d.source) {
			continue
		}
		data, url, err := p.fetcher.TryURLs(ctx, d.urls)
		if err != nil {
			if d.source == domain.SourceBase {
				return fmt.Errorf("base directory fetch failed: %w", err)
			}
			p.logger.Warn("source fetch failed, continuing without it",
				slog.String("source", d.source),
				slog.String("error", err.Error()))
			continue
		}
		if _, err := p.store.WriteDownload(d.name, data); err != nil {
			return err
		}
		p.logger.Info("fetched source",
			slog.String("source", d.source),
			slog.String("url", url))
		fetched++
	}

	p.logger.Info("fetch step complete", slog.Int("sources", fetched))
	return nil
}

// extract produces one envelope per source from the downloads on disk. The
// base directory is required; enrichment sources missing their download are
// skipped with a warning.
func (p *pipeline) extract(ctx context.Context) error {
	var base []domain.OPO
	if p.wants(domain.SourceBase) {
		var err error
		base, err = p.extractBase()
		if err != nil {
			return err
		}
	}

	if p.wants(domain.SourceCMSTier) {
		if err := p.extractCMS(); err != nil {
			return err
		}
	}
	if p.wants(domain.SourceHRSA) {
		if err := p.extractWorkbook(domain.SourceHRSA, downloadHRSA, func(data []byte) ([]domain.OPO, error) {
			return extract.NewAssessmentExtractor(p.logger).Extract(data)
		}); err != nil {
			return err
		}
	}
	if p.wants(domain.SourceSRTR) {
		if err := p.extractWorkbook(domain.SourceSRTR, downloadSRTR, func(data []byte) ([]domain.OPO, error) {
			return extract.NewUtilizationExtractor(p.logger).Extract(data)
		}); err != nil {
			return err
		}
	}
	if p.wants(domain.SourcePropublica) {
		if err := p.extractFinancial(ctx, base); err != nil {
			return err
		}
	}

	return nil
}

func (p *pipeline) extractBase() ([]domain.OPO, error) {
	data, err := p.store.ReadDownload(downloadDirectory)
	if err != nil {
		return nil, fmt.Errorf("base directory download missing, run the fetch step: %w", err)
	}

	opos, err := extract.NewDirectoryExtractor(p.logger).Extract(data)
	if err != nil {
		return nil, err
	}
	if err := p.store.WriteEnvelope(domain.SourceBase, domain.NewEnvelope(domain.SourceBase, opos)); err != nil {
		return nil, err
	}
	return opos, nil
}

func (p *pipeline) extractCMS() error {
	data, err := p.store.ReadDownload(downloadCMS)
	if err != nil {
		p.logger.Warn("download missing, skipping source",
			slog.String("source", domain.SourceCMSTier))
		return nil
	}

	records, opos, err := extract.NewSummaryExtractor(p.logger).Extract(data)
	if err != nil {
		return err
	}

	tierEnvelope := domain.TierEnvelope{
		Metadata: domain.Metadata{
			Source:      domain.SourceCMSTier,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Count:       len(records),
		},
		Records: records,
	}
	if err := p.store.WriteTierEnvelope(tierEnvelope); err != nil {
		return err
	}
	return p.store.WriteEnvelope(domain.SourceCMSTier, domain.NewEnvelope(domain.SourceCMSTier, opos))
}

func (p *pipeline) extractWorkbook(source, download string, run func([]byte) ([]domain.OPO, error)) error {
	data, err := p.store.ReadDownload(download)
	if err != nil {
		p.logger.Warn("download missing, skipping source",
			slog.String("source", source))
		return nil
	}

	opos, err := run(data)
	if err != nil {
		return err
	}
	return p.store.WriteEnvelope(source, domain.NewEnvelope(source, opos))
}

func (p *pipeline) extractFinancial(ctx context.Context, base []domain.OPO) error {
	if base == nil {
		envelope, err := p.store.ReadEnvelope(domain.SourceBase)
		if err != nil {
			return fmt.Errorf("base dataset missing, run the extract step first: %w", err)
		}
		base = envelope.OPOs
	}

	client := propublica.NewClient(
		p.cfg.ProPublica.BaseURL,
		p.cfg.ProPublica.RequestDelay,
		p.cfg.ProPublica.Timeout,
		p.logger)

	opos, err := extract.NewFinancialExtractor(client, p.logger).Extract(ctx, base)
	if err != nil {
		return err
	}
	return p.store.WriteEnvelope(domain.SourcePropublica, domain.NewEnvelope(domain.SourcePropublica, opos))
}

// merge folds whatever per-source envelopes exist into the canonical
// dataset. Only the base is required.
func (p *pipeline) merge() error {
	baseEnvelope, err := p.store.ReadEnvelope(domain.SourceBase)
	if err != nil {
		return fmt.Errorf("base dataset missing, run the extract step first: %w", err)
	}

	enrichments := merge.Enrichments{
		Propublica: p.readOptional(domain.SourcePropublica),
		HRSA:       p.readOptional(domain.SourceHRSA),
		SRTR:       p.readOptional(domain.SourceSRTR),
		CMSTier:    p.readOptional(domain.SourceCMSTier),
	}

	result := merge.NewEngine(p.logger).Merge(baseEnvelope.OPOs, enrichments)
	return p.store.WriteEnvelope(domain.SourceMerged, merge.BuildEnvelope(result))
}

func (p *pipeline) readOptional(source string) []domain.OPO {
	envelope, err := p.store.ReadEnvelope(source)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeNotFound {
			p.logger.Warn("source dataset absent, merging without it",
				slog.String("source", source))
			return nil
		}
		p.logger.Error("source dataset unreadable, merging without it",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return nil
	}
	return envelope.OPOs
}
