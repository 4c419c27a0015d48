package ingest

import "github.com/polyinsider/collector/internal/store"

// Deduplicate keeps the first occurrence of each record key, preserving
// order, and reports how many records were dropped.
func Deduplicate(records []store.ActivityRecord) ([]store.ActivityRecord, int) {
	seen := make(map[store.ActivityKey]struct{}, len(records))
	unique := make([]store.ActivityRecord, 0, len(records))

	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}

	return unique, len(records) - len(unique)
}
