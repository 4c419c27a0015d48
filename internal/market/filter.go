package market

import (
	"log/slog"

	"github.com/polyinsider/collector/internal/store"
)

// DefaultMinTrades is the fewest TRADE records a market needs to be kept.
const DefaultMinTrades = 30

// QualityFilter drops markets with too few trades.
type QualityFilter struct {
	MinTrades int
	Logger    *slog.Logger
}

// NewQualityFilter creates a filter with the given threshold.
func NewQualityFilter(minTrades int) QualityFilter {
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}
	return QualityFilter{MinTrades: minTrades}
}

// Apply returns the groups meeting the threshold, unchanged and in input
// order, plus one SkipEntry per rejected group.
func (f QualityFilter) Apply(groups []store.MarketGroup) ([]store.MarketGroup, []store.SkipEntry) {
	minTrades := f.MinTrades
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kept := make([]store.MarketGroup, 0, len(groups))
	var skipped []store.SkipEntry

	for _, g := range groups {
		n := g.TradeCount()
		if n >= minTrades {
			kept = append(kept, g)
			continue
		}
		skipped = append(skipped, store.SkipEntry{MarketSlug: g.Slug, TradeCount: n})
		logger.Debug("market_skipped", "slug", g.Slug, "trades", n, "min_trades", minTrades)
	}

	return kept, skipped
}
