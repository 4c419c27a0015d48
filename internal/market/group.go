// Package market groups wallet activity by market and applies the minimum
// trade threshold that decides which markets are worth persisting.
package market

import (
	"sort"

	"github.com/polyinsider/collector/internal/store"
)

// GroupByMarket partitions records by market slug. Groups come back in the
// order their slug first appears; records inside a group are sorted by
// ascending timestamp, ties keeping input order.
func GroupByMarket(records []store.ActivityRecord) []store.MarketGroup {
	index := make(map[string]int)
	var groups []store.MarketGroup

	for _, r := range records {
		i, ok := index[r.MarketSlug]
		if !ok {
			i = len(groups)
			index[r.MarketSlug] = i
			groups = append(groups, store.MarketGroup{Slug: r.MarketSlug})
		}
		groups[i].Records = append(groups[i].Records, r)
	}

	for i := range groups {
		recs := groups[i].Records
		sort.SliceStable(recs, func(a, b int) bool {
			return recs[a].Timestamp < recs[b].Timestamp
		})
	}

	return groups
}
