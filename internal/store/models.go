// Package store provides the data models shared by the collection and analysis paths.
package store

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ActivityType is the kind of ledger entry returned by the activity endpoint.
type ActivityType string

// Activity types. Only TRADE counts toward the quality threshold and plots.
const (
	ActivityTrade      ActivityType = "TRADE"
	ActivityMerge      ActivityType = "MERGE"
	ActivitySplit      ActivityType = "SPLIT"
	ActivityRedeem     ActivityType = "REDEEM"
	ActivityReward     ActivityType = "REWARD"
	ActivityConversion ActivityType = "CONVERSION"
)

// ParseActivityType normalizes an API or CSV type label.
func ParseActivityType(s string) ActivityType {
	return ActivityType(strings.ToUpper(strings.TrimSpace(s)))
}

// Outcome is the side of a two-outcome contract.
type Outcome string

// Outcomes used by up/down markets. Other labels (Yes/No) are kept verbatim.
const (
	OutcomeUp   Outcome = "Up"
	OutcomeDown Outcome = "Down"
	OutcomeNone Outcome = ""
)

// ParseOutcome maps up/down labels case-insensitively onto the canonical
// constants and leaves anything else untouched.
func ParseOutcome(s string) Outcome {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "up":
		return OutcomeUp
	case "down":
		return OutcomeDown
	}
	return Outcome(s)
}

// ActivityRecord is one wallet ledger entry on one market.
type ActivityRecord struct {
	// Timestamp is unix seconds
	Timestamp int64

	Type    ActivityType
	Outcome Outcome

	// Size is the contract count
	Size decimal.Decimal

	// UsdcSize is the USDC notional of the entry
	UsdcSize decimal.Decimal

	// Price is in [0,1]
	Price decimal.Decimal

	TransactionHash string
	MarketSlug      string
	Title           string

	// WalletAddress is the lowercase address the history was fetched for
	WalletAddress string

	Side         string
	ConditionID  string
	Asset        string
	OutcomeIndex int
	EventSlug    string
}

// ActivityKey identifies one on-chain event. Records sharing a key are the
// same event even if other fields differ.
type ActivityKey struct {
	TransactionHash string
	MarketSlug      string
	Outcome         Outcome
	Timestamp       int64
}

// Key returns the record's identity key.
func (r ActivityRecord) Key() ActivityKey {
	return ActivityKey{
		TransactionHash: r.TransactionHash,
		MarketSlug:      r.MarketSlug,
		Outcome:         r.Outcome,
		Timestamp:       r.Timestamp,
	}
}

// IsTrade reports whether the record is a TRADE entry.
func (r ActivityRecord) IsTrade() bool {
	return r.Type == ActivityTrade
}

// MarketGroup holds all records of one market ordered by ascending timestamp.
type MarketGroup struct {
	Slug    string
	Records []ActivityRecord
}

// TradeCount counts TRADE records in the group.
func (g MarketGroup) TradeCount() int {
	n := 0
	for _, r := range g.Records {
		if r.IsTrade() {
			n++
		}
	}
	return n
}

// WalletSession is a named wallet whose history can be collected.
type WalletSession struct {
	Name    string
	Address string
}

// SkipEntry reports a market left out of persistence by the quality filter.
type SkipEntry struct {
	MarketSlug string
	TradeCount int
}

// OutcomeStats summarizes the trades of one outcome.
type OutcomeStats struct {
	TradeCount    int
	ContractTotal decimal.Decimal
	UsdcTotal     decimal.Decimal
}

// PlotStatistics summarizes a dataset's Up/Down trades. Never persisted.
type PlotStatistics struct {
	TotalTrades int
	PerOutcome  map[Outcome]OutcomeStats
}
