// Package collector runs the wallet collection pipeline: fetch, deduplicate,
// group by market, filter by trade count and persist one dataset per market.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polyinsider/collector/internal/config"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/ingest"
	"github.com/polyinsider/collector/internal/market"
	"github.com/polyinsider/collector/internal/metrics"
	"github.com/polyinsider/collector/internal/store"
	"github.com/polyinsider/collector/internal/wallet"
)

// ActivitySource returns a wallet's complete activity history.
type ActivitySource interface {
	FetchAll(ctx context.Context, address string) ([]store.ActivityRecord, error)
}

// SavedDataset describes one persisted market.
type SavedDataset struct {
	MarketSlug string
	Path       string
	Records    int
	Trades     int
}

// Report summarizes one collection run.
type Report struct {
	RunID      uuid.UUID
	Wallet     store.WalletSession
	Fetched    int
	Unique     int
	Duplicates int
	Markets    int
	Saved      []SavedDataset
	Skipped    []store.SkipEntry
	StartedAt  time.Time
	Duration   time.Duration
}

// Options configures a Collector.
type Options struct {
	Source  ActivitySource
	Writer  *dataset.Writer
	Filter  market.QualityFilter
	Tracker *metrics.MetricsTracker
	Logger  *slog.Logger
}

// Collector runs the pipeline for one wallet at a time.
type Collector struct {
	source  ActivitySource
	writer  *dataset.Writer
	filter  market.QualityFilter
	tracker *metrics.MetricsTracker
	logger  *slog.Logger
}

// New creates a Collector.
func New(opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	filter := opts.Filter
	if filter.Logger == nil {
		filter.Logger = logger
	}
	return &Collector{
		source:  opts.Source,
		writer:  opts.Writer,
		filter:  filter,
		tracker: opts.Tracker,
		logger:  logger,
	}
}

// NewFromConfig wires the Data API client, paginating fetcher and dataset
// writer described by cfg.
func NewFromConfig(cfg *config.Config, tracker *metrics.MetricsTracker, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	client := ingest.NewClient(cfg.DataAPIURL,
		ingest.WithTimeout(cfg.RequestTimeout),
		ingest.WithLogger(logger),
	)
	fetcher := ingest.NewFetcher(client, ingest.FetcherConfig{
		PageSize:       cfg.PageSize,
		MaxRecords:     cfg.MaxRecords,
		MaxOffset:      cfg.MaxOffset,
		RateLimitDelay: cfg.RateLimitDelay,
	}, logger)
	if tracker != nil {
		fetcher.OnPage(func(_, count int) { tracker.RecordPage(count) })
	}

	return New(Options{
		Source:  fetcher,
		Writer:  dataset.NewWriter(cfg.DataDir, logger),
		Filter:  market.NewQualityFilter(cfg.MinTrades),
		Tracker: tracker,
		Logger:  logger,
	})
}

// Run collects one wallet. The session is validated before any request;
// nothing is written unless the whole history was fetched.
func (c *Collector) Run(ctx context.Context, session store.WalletSession) (*Report, error) {
	session, err := wallet.NewSession(session.Name, session.Address)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New(),
		Wallet:    session,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("run_id", report.RunID.String(), "wallet", session.Name)
	logger.Info("collection_started", "address", session.Address)
	c.track(func(t *metrics.MetricsTracker) { t.StartRun(session.Name) })

	raw, err := c.source.FetchAll(ctx, session.Address)
	if err != nil {
		c.fail("transport", err)
		return nil, fmt.Errorf("collect %s: %w", session.Name, err)
	}
	report.Fetched = len(raw)

	unique, removed := ingest.Deduplicate(raw)
	report.Unique = len(unique)
	report.Duplicates = removed
	if removed > 0 {
		logger.Info("duplicates_removed", "count", removed)
	}
	c.track(func(t *metrics.MetricsTracker) { t.RecordDuplicates(removed) })

	groups := market.GroupByMarket(unique)
	report.Markets = len(groups)
	kept, skipped := c.filter.Apply(groups)
	report.Skipped = skipped

	c.track(func(t *metrics.MetricsTracker) { t.SetStatus(metrics.StatusPersisting) })
	for _, g := range kept {
		path, err := c.writer.Write(session, g)
		if err != nil {
			c.fail("write", err)
			return nil, fmt.Errorf("collect %s: %w", session.Name, err)
		}
		report.Saved = append(report.Saved, SavedDataset{
			MarketSlug: g.Slug,
			Path:       path,
			Records:    len(g.Records),
			Trades:     g.TradeCount(),
		})
	}

	report.Duration = time.Since(report.StartedAt)
	c.track(func(t *metrics.MetricsTracker) {
		t.FinishRun(session.Name, session.Address, report.Unique, len(report.Saved), len(report.Skipped), report.Duration)
	})

	logger.Info("collection_finished",
		"fetched", report.Fetched,
		"unique", report.Unique,
		"markets", report.Markets,
		"saved", len(report.Saved),
		"skipped", len(report.Skipped),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// RunAll collects each wallet in turn. A failing wallet does not stop the
// others; its error is joined into the returned error.
func (c *Collector) RunAll(ctx context.Context, sessions []store.WalletSession) ([]*Report, error) {
	var (
		reports []*Report
		errs    []error
	)
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, err := c.Run(ctx, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}

func (c *Collector) track(fn func(t *metrics.MetricsTracker)) {
	if c.tracker != nil {
		fn(c.tracker)
	}
}

func (c *Collector) fail(kind string, err error) {
	c.logger.Error("collection_failed", "stage", kind, "error", err)
	c.track(func(t *metrics.MetricsTracker) { t.RecordError(kind, err) })
}
