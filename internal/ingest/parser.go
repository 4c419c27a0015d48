package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polyinsider/collector/internal/store"
)

// activityAPIResponse is one entry of the /activity response.
// Numeric amounts may arrive as JSON numbers or strings; decimal handles both.
type activityAPIResponse struct {
	ProxyWallet     string          `json:"proxyWallet"`
	Timestamp       int64           `json:"timestamp"`
	ConditionID     string          `json:"conditionId"`
	Type            string          `json:"type"`
	Size            decimal.Decimal `json:"size"`
	UsdcSize        decimal.Decimal `json:"usdcSize"`
	TransactionHash string          `json:"transactionHash"`
	Price           decimal.Decimal `json:"price"`
	Asset           string          `json:"asset"`
	Side            string          `json:"side"`
	OutcomeIndex    int             `json:"outcomeIndex"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	EventSlug       string          `json:"eventSlug"`
	Outcome         string          `json:"outcome"`
}

// convertActivities converts API entries to records owned by address.
// Entries without a market slug cannot be grouped and are dropped; the count
// of dropped entries is returned.
func convertActivities(entries []activityAPIResponse, address string) ([]store.ActivityRecord, int) {
	records := make([]store.ActivityRecord, 0, len(entries))
	dropped := 0

	for _, e := range entries {
		if strings.TrimSpace(e.Slug) == "" {
			dropped++
			continue
		}
		records = append(records, convertActivity(e, address))
	}

	return records, dropped
}

// convertActivity converts an activityAPIResponse to store.ActivityRecord.
func convertActivity(e activityAPIResponse, address string) store.ActivityRecord {
	return store.ActivityRecord{
		Timestamp:       e.Timestamp,
		Type:            store.ParseActivityType(e.Type),
		Outcome:         store.ParseOutcome(e.Outcome),
		Size:            e.Size,
		UsdcSize:        e.UsdcSize,
		Price:           e.Price,
		TransactionHash: e.TransactionHash,
		MarketSlug:      strings.TrimSpace(e.Slug),
		Title:           e.Title,
		WalletAddress:   coalesce(address, strings.ToLower(e.ProxyWallet)),
		Side:            e.Side,
		ConditionID:     e.ConditionID,
		Asset:           e.Asset,
		OutcomeIndex:    e.OutcomeIndex,
		EventSlug:       e.EventSlug,
	}
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
