package chart

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/store"
)

func trade(ts int64, outcome store.Outcome, size, usdc string) store.ActivityRecord {
	return store.ActivityRecord{
		Timestamp:  ts,
		Type:       store.ActivityTrade,
		Outcome:    outcome,
		Size:       decimal.RequireFromString(size),
		UsdcSize:   decimal.RequireFromString(usdc),
		Price:      decimal.RequireFromString("0.5"),
		MarketSlug: "btc-updown",
		Title:      "Bitcoin Up or Down",
	}
}

func sampleRecords() []store.ActivityRecord {
	return []store.ActivityRecord{
		trade(300, store.OutcomeDown, "4", "2"),
		trade(100, store.OutcomeUp, "10", "5"),
		trade(100, store.OutcomeUp, "2", "1"),
		{Timestamp: 150, Type: store.ActivityMerge, Size: decimal.NewFromInt(50), MarketSlug: "btc-updown"},
		trade(200, store.OutcomeUp, "3", "1.5"),
		trade(250, store.Outcome("Yes"), "99", "99"),
	}
}

func TestAnalyze_CumulativeSeries(t *testing.T) {
	a, err := Analyze("btc-updown", sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin Up or Down", a.Title)

	up := a.SeriesFor(store.OutcomeUp)
	require.NotNil(t, up)
	assert.Len(t, up.Trades, 3)
	require.Len(t, up.Cumulative, 2, "one point per distinct timestamp")
	assert.Equal(t, int64(100), up.Cumulative[0].Timestamp)
	assert.True(t, decimal.NewFromInt(12).Equal(up.Cumulative[0].Contracts))
	assert.Equal(t, int64(200), up.Cumulative[1].Timestamp)
	assert.True(t, decimal.NewFromInt(15).Equal(up.Cumulative[1].Contracts))

	down := a.SeriesFor(store.OutcomeDown)
	require.NotNil(t, down)
	require.Len(t, down.Cumulative, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(down.Cumulative[0].Contracts), "independent of Up")

	for _, s := range a.Series {
		for i := 1; i < len(s.Cumulative); i++ {
			assert.True(t, s.Cumulative[i].Contracts.GreaterThanOrEqual(s.Cumulative[i-1].Contracts))
			assert.Greater(t, s.Cumulative[i].Timestamp, s.Cumulative[i-1].Timestamp)
		}
	}
}

func TestAnalyze_Statistics(t *testing.T) {
	a, err := Analyze("btc-updown", sampleRecords())
	require.NoError(t, err)

	st := a.Stats
	up, down := st.PerOutcome[store.OutcomeUp], st.PerOutcome[store.OutcomeDown]
	assert.Equal(t, 4, st.TotalTrades)
	assert.Equal(t, st.TotalTrades, up.TradeCount+down.TradeCount)
	assert.Equal(t, 3, up.TradeCount)
	assert.True(t, decimal.NewFromInt(15).Equal(up.ContractTotal))
	assert.True(t, decimal.RequireFromString("7.5").Equal(up.UsdcTotal))
	assert.Equal(t, 1, down.TradeCount)

	assert.Equal(t,
		"Total trades: 4\nUp: 3 trades, 15.00 contracts, $7.50\nDown: 1 trades, 4.00 contracts, $2.00",
		StatsText(st))
}

func TestAnalyze_SingleOutcome(t *testing.T) {
	a, err := Analyze("m", []store.ActivityRecord{trade(1, store.OutcomeUp, "1", "1")})
	require.NoError(t, err)

	down := a.SeriesFor(store.OutcomeDown)
	require.NotNil(t, down)
	assert.Empty(t, down.Cumulative)
	assert.Zero(t, a.Stats.PerOutcome[store.OutcomeDown].TradeCount)
}

func TestAnalyze_NoPlottableTrades(t *testing.T) {
	records := []store.ActivityRecord{
		{Timestamp: 1, Type: store.ActivityMerge, Size: decimal.NewFromInt(1)},
		trade(2, store.Outcome("Yes"), "1", "1"),
	}

	_, err := Analyze("m", records)
	var empty *store.EmptyDataError
	require.True(t, errors.As(err, &empty))
	assert.ErrorIs(t, err, store.ErrNoTradableData)
}

func TestMarkerRadius(t *testing.T) {
	assert.Equal(t, markerRadius(0), markerRadius(-5))
	assert.Less(t, float64(markerRadius(10)), float64(markerRadius(100)))
	assert.Equal(t, markerRadius(1e9), markerRadius(1e12))
}

func TestRenderFile_WritesPNG(t *testing.T) {
	dir := t.TempDir()
	session := store.WalletSession{Name: "alice"}
	path, err := dataset.NewWriter(filepath.Join(dir, "data"), nil).
		Write(session, store.MarketGroup{Slug: "btc-updown", Records: sampleRecords()})
	require.NoError(t, err)

	r := NewRenderer(filepath.Join(dir, "plots"), 50, nil)
	out, a, err := r.RenderFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plots", "btc-updown.png"), out)
	assert.Equal(t, 4, a.Stats.TotalTrades)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderFile_DefaultResolution(t *testing.T) {
	dir := t.TempDir()
	path, err := dataset.NewWriter(filepath.Join(dir, "data"), nil).
		Write(store.WalletSession{Name: "alice"}, store.MarketGroup{Slug: "btc-updown", Records: sampleRecords()})
	require.NoError(t, err)

	out, _, err := NewRenderer(filepath.Join(dir, "plots"), 0, nil).RenderFile(path)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	// 14x10 inches at 150 DPI
	assert.Equal(t, 2100, cfg.Width)
	assert.Equal(t, 1500, cfg.Height)
}

func TestRendererPath_MatchesDatasetName(t *testing.T) {
	r := NewRenderer("plots", 0, nil)
	for _, slug := range []string{"btc-updown", "a/b", `a\b`, "..", "", "x\x00y"} {
		csvStem := strings.TrimSuffix(filepath.Base(dataset.Path("data", "alice", slug)), dataset.Ext)
		assert.Equal(t, filepath.Join("plots", csvStem+".png"), r.Path(slug), "slug %q", slug)
	}
}

func TestRenderFile_EmptyDataset(t *testing.T) {
	dir := t.TempDir()
	path, err := dataset.NewWriter(dir, nil).Write(store.WalletSession{Name: "alice"}, store.MarketGroup{
		Slug:    "quiet",
		Records: []store.ActivityRecord{{Timestamp: 1, Type: store.ActivitySplit, MarketSlug: "quiet"}},
	})
	require.NoError(t, err)

	r := NewRenderer(filepath.Join(dir, "plots"), 50, nil)
	_, _, err = r.RenderFile(path)

	var empty *store.EmptyDataError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, path, empty.Path)
	assert.NoFileExists(t, r.Path("quiet"))
}
