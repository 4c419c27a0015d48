package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/collector/internal/config"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/ingest"
	"github.com/polyinsider/collector/internal/market"
	"github.com/polyinsider/collector/internal/metrics"
	"github.com/polyinsider/collector/internal/store"
)

const address = "0x1234567890abcdef1234567890abcdef12345678"

var alice = store.WalletSession{Name: "alice", Address: address}

func history(slug string, trades, merges int, start int64) []store.ActivityRecord {
	var out []store.ActivityRecord
	for i := 0; i < trades+merges; i++ {
		typ := store.ActivityTrade
		if i >= trades {
			typ = store.ActivityMerge
		}
		out = append(out, store.ActivityRecord{
			Timestamp:       start - int64(i),
			Type:            typ,
			Outcome:         store.OutcomeUp,
			Size:            decimal.NewFromInt(1),
			UsdcSize:        decimal.RequireFromString("0.5"),
			Price:           decimal.RequireFromString("0.5"),
			TransactionHash: fmt.Sprintf("0x%s-%d", slug, i),
			MarketSlug:      slug,
			WalletAddress:   address,
		})
	}
	return out
}

// overlappingPages serves all in pages that each repeat the previous page's
// last record.
type overlappingPages struct {
	all   []store.ActivityRecord
	calls int
}

func (p *overlappingPages) FetchPage(_ context.Context, _ string, offset, limit int) ([]store.ActivityRecord, error) {
	p.calls++
	start := offset - offset/limit
	if start >= len(p.all) {
		return nil, nil
	}
	end := min(start+limit, len(p.all))
	return p.all[start:end], nil
}

type failingSource struct{}

func (failingSource) FetchAll(context.Context, string) ([]store.ActivityRecord, error) {
	return nil, &store.TransportError{Op: "GET", URL: "stub", StatusCode: http.StatusServiceUnavailable}
}

func newCollector(t *testing.T, src ActivitySource, tracker *metrics.MetricsTracker) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{
		Source:  src,
		Writer:  dataset.NewWriter(dir, nil),
		Filter:  market.NewQualityFilter(30),
		Tracker: tracker,
	}), dir
}

func TestRun_PersistsQualifiedMarketsOnly(t *testing.T) {
	var all []store.ActivityRecord
	all = append(all, history("keep", 30, 4, 2000)...)
	all = append(all, history("drop", 29, 10, 1000)...)

	pages := &overlappingPages{all: all}
	fetcher := ingest.NewFetcher(pages, ingest.FetcherConfig{PageSize: 3}, nil)
	tracker := metrics.NewMetricsTracker()
	c, dir := newCollector(t, fetcher, tracker)

	report, err := c.Run(context.Background(), alice)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, len(all), report.Unique)
	assert.Equal(t, report.Fetched-len(all), report.Duplicates)
	assert.Positive(t, report.Duplicates)
	assert.Equal(t, 2, report.Markets)

	require.Len(t, report.Saved, 1)
	assert.Equal(t, "keep", report.Saved[0].MarketSlug)
	assert.Equal(t, 34, report.Saved[0].Records)
	assert.Equal(t, 30, report.Saved[0].Trades)
	assert.Equal(t, []store.SkipEntry{{MarketSlug: "drop", TradeCount: 29}}, report.Skipped)

	records, err := dataset.ReadFile(filepath.Join(dir, "alice", "keep.csv"))
	require.NoError(t, err)
	require.Len(t, records, 34)
	for i := 1; i < len(records); i++ {
		assert.LessOrEqual(t, records[i-1].Timestamp, records[i].Timestamp)
	}
	assert.NoFileExists(t, filepath.Join(dir, "alice", "drop.csv"))

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.MarketsSaved)
	assert.Equal(t, int64(1), snap.MarketsSkipped)
	assert.Equal(t, metrics.StatusIdle, snap.Status)
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	src := &overlappingPages{all: history("keep", 31, 0, 500)}
	c, dir := newCollector(t, ingest.NewFetcher(src, ingest.FetcherConfig{PageSize: 5}, nil), nil)

	_, err := c.Run(context.Background(), alice)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "alice", "keep.csv"))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), alice)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "alice", "keep.csv"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_TransportErrorLeavesDatasetsUntouched(t *testing.T) {
	tracker := metrics.NewMetricsTracker()
	c, dir := newCollector(t, failingSource{}, tracker)

	existing := filepath.Join(dir, "alice", "keep.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("old contents"), 0o644))

	report, err := c.Run(context.Background(), alice)
	require.Error(t, err)
	assert.Nil(t, report)

	var te *store.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old contents", string(got))
	assert.Equal(t, int64(1), tracker.Snapshot().ErrorsByKind["transport"])
}

func TestRun_InvalidAddressBeforeAnyRequest(t *testing.T) {
	src := &overlappingPages{}
	c, _ := newCollector(t, ingest.NewFetcher(src, ingest.FetcherConfig{}, nil), nil)

	_, err := c.Run(context.Background(), store.WalletSession{Name: "bad", Address: "0x123"})
	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Zero(t, src.calls)
}

func TestRunAll_ContinuesPastFailures(t *testing.T) {
	src := &overlappingPages{all: history("keep", 30, 0, 100)}
	c, _ := newCollector(t, ingest.NewFetcher(src, ingest.FetcherConfig{PageSize: 50}, nil), nil)

	reports, err := c.RunAll(context.Background(), []store.WalletSession{
		{Name: "bad", Address: "nope"},
		alice,
	})
	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "alice", reports[0].Wallet.Name)
}

func TestNewFromConfig_AgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[`)
		for i := 0; i < 30; i++ {
			if i > 0 {
				fmt.Fprint(w, `,`)
			}
			fmt.Fprintf(w, `{"timestamp":%d,"type":"TRADE","size":"2","usdcSize":"1","price":"0.5",`+
				`"transactionHash":"0x%d","slug":"eth-updown","outcome":"Down"}`, 1700000000+i, i)
		}
		fmt.Fprint(w, `]`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.DataAPIURL = srv.URL
	cfg.DataDir = t.TempDir()
	cfg.PageSize = 100
	cfg.RateLimitDelay = 0

	tracker := metrics.NewMetricsTracker()
	report, err := NewFromConfig(cfg, tracker, nil).Run(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, report.Saved, 1)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "alice", "eth-updown.csv"))
	assert.Equal(t, int64(1), tracker.Snapshot().PagesFetched)
}
