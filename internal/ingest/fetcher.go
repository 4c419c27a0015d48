package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polyinsider/collector/internal/store"
)

const (
	// DefaultPageSize is the number of entries requested per page
	DefaultPageSize = 500
	// DefaultMaxRecords caps the history fetched for one wallet
	DefaultMaxRecords = 10000
	// DefaultMaxOffset is the largest offset the Data API accepts
	DefaultMaxOffset = 10000
	// DefaultRateLimitDelay is the pause between consecutive page requests
	DefaultRateLimitDelay = 500 * time.Millisecond
)

// PageSource returns one page of a wallet's activity.
type PageSource interface {
	FetchPage(ctx context.Context, address string, offset, limit int) ([]store.ActivityRecord, error)
}

// FetcherConfig bounds pagination.
type FetcherConfig struct {
	PageSize   int
	MaxRecords int
	// MaxOffset of zero disables the offset guard
	MaxOffset      int
	RateLimitDelay time.Duration
}

// PageObserver is notified after each successful page.
type PageObserver func(offset, count int)

// Fetcher walks every page of a wallet's activity history.
type Fetcher struct {
	source PageSource
	cfg    FetcherConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	onPage PageObserver
}

// NewFetcher creates a Fetcher over source. Zero config fields take defaults.
func NewFetcher(source PageSource, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	if cfg.RateLimitDelay < 0 {
		cfg.RateLimitDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		source: source,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// OnPage registers a callback invoked after every fetched page.
func (f *Fetcher) OnPage(fn PageObserver) {
	f.onPage = fn
}

// FetchAll returns the wallet's activity history, newest first, possibly with
// duplicates where pages overlap. Any page failure aborts the fetch and no
// records are returned.
func (f *Fetcher) FetchAll(ctx context.Context, address string) ([]store.ActivityRecord, error) {
	address = strings.ToLower(address)

	var all []store.ActivityRecord
	offset := 0

	for {
		page, err := f.source.FetchPage(ctx, address, offset, f.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch activity for %s at offset %d: %w", address, offset, err)
		}

		all = append(all, page...)
		f.logger.Debug("activity_page_fetched",
			"address", address,
			"offset", offset,
			"count", len(page),
			"total", len(all),
		)
		if f.onPage != nil {
			f.onPage(offset, len(page))
		}

		if len(page) < f.cfg.PageSize {
			break
		}
		if len(all) >= f.cfg.MaxRecords {
			f.logger.Info("max_records_reached", "address", address, "max_records", f.cfg.MaxRecords)
			break
		}

		next := offset + f.cfg.PageSize
		if f.cfg.MaxOffset > 0 && next > f.cfg.MaxOffset {
			f.logger.Info("max_offset_reached", "address", address, "max_offset", f.cfg.MaxOffset)
			break
		}
		offset = next

		if err := f.sleep(ctx, f.cfg.RateLimitDelay); err != nil {
			return nil, err
		}
	}

	if len(all) > f.cfg.MaxRecords {
		all = all[:f.cfg.MaxRecords]
	}

	f.logger.Info("activity_fetched", "address", address, "records", len(all))
	return all, nil
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
