// Package chart turns a market dataset into the two-panel trade chart:
// trade sizes over time on top, cumulative contracts per outcome below.
package chart

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/polyinsider/collector/internal/store"
)

// PlottedOutcomes are drawn in this order.
var PlottedOutcomes = []store.Outcome{store.OutcomeUp, store.OutcomeDown}

// TradePoint is one trade in the scatter panel.
type TradePoint struct {
	Timestamp int64
	UsdcSize  decimal.Decimal
	Price     decimal.Decimal
}

// CumulativePoint is the running contract total after all trades at Timestamp.
type CumulativePoint struct {
	Timestamp int64
	Contracts decimal.Decimal
}

// OutcomeSeries holds the chart data of one outcome.
type OutcomeSeries struct {
	Outcome    store.Outcome
	Trades     []TradePoint
	Cumulative []CumulativePoint
}

// Analysis is everything needed to draw a market chart.
type Analysis struct {
	Slug   string
	Title  string
	Series []OutcomeSeries
	Stats  store.PlotStatistics
}

// SeriesFor returns the series of outcome, or nil.
func (a *Analysis) SeriesFor(outcome store.Outcome) *OutcomeSeries {
	for i := range a.Series {
		if a.Series[i].Outcome == outcome {
			return &a.Series[i]
		}
	}
	return nil
}

// Analyze builds chart series and statistics from a dataset's records.
// Only TRADE rows with an Up or Down outcome take part. Each outcome's
// cumulative series is independent and has one point per distinct
// timestamp. Returns *store.EmptyDataError when nothing is plottable.
func Analyze(slug string, records []store.ActivityRecord) (*Analysis, error) {
	trades := make([]store.ActivityRecord, 0, len(records))
	title := ""
	for _, r := range records {
		if title == "" && r.Title != "" {
			title = r.Title
		}
		if !r.IsTrade() {
			continue
		}
		if r.Outcome != store.OutcomeUp && r.Outcome != store.OutcomeDown {
			continue
		}
		trades = append(trades, r)
	}
	if len(trades) == 0 {
		return nil, &store.EmptyDataError{Path: slug}
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp < trades[j].Timestamp
	})

	a := &Analysis{
		Slug:  slug,
		Title: title,
		Stats: store.PlotStatistics{
			TotalTrades: len(trades),
			PerOutcome:  make(map[store.Outcome]store.OutcomeStats, len(PlottedOutcomes)),
		},
	}

	for _, outcome := range PlottedOutcomes {
		series := OutcomeSeries{Outcome: outcome}
		stats := store.OutcomeStats{ContractTotal: decimal.Zero, UsdcTotal: decimal.Zero}
		running := decimal.Zero

		for _, t := range trades {
			if t.Outcome != outcome {
				continue
			}
			series.Trades = append(series.Trades, TradePoint{
				Timestamp: t.Timestamp,
				UsdcSize:  t.UsdcSize,
				Price:     t.Price,
			})

			stats.TradeCount++
			stats.ContractTotal = stats.ContractTotal.Add(t.Size)
			stats.UsdcTotal = stats.UsdcTotal.Add(t.UsdcSize)

			running = running.Add(t.Size)
			n := len(series.Cumulative)
			if n > 0 && series.Cumulative[n-1].Timestamp == t.Timestamp {
				series.Cumulative[n-1].Contracts = running
				continue
			}
			series.Cumulative = append(series.Cumulative, CumulativePoint{
				Timestamp: t.Timestamp,
				Contracts: running,
			})
		}

		a.Series = append(a.Series, series)
		a.Stats.PerOutcome[outcome] = stats
	}

	return a, nil
}
